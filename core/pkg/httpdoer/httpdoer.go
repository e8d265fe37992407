// Package httpdoer captures the outbound HTTP transport seam used by the
// Http task. Tasks never hold a *http.Client directly so that an engine
// under test can be wired against a fake doer and never dial out.
package httpdoer

import "net/http"

// HTTPDoer is the subset of *http.Client the Http task relies on.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
