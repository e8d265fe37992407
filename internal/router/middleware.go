package router

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lattice-http/lattice/core/pkg/requestid"
	"github.com/lattice-http/lattice/internal/logx"
)

const (
	ctxKeyEndpointTag       = "lattice.endpoint_tag"
	ctxKeyGuardShortCircuit = "lattice.guard_short_circuit"
)

func requestIDMiddleware(headerKey string) gin.HandlerFunc {
	headerKey = requestid.ResolveHeaderKey(headerKey)
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerKey))
		if id == "" {
			id = requestid.Gen()
		}
		c.Header(headerKey, id)
		c.Set(headerKey, id)
		c.Next()
	}
}

// accessLogMiddleware logs one line per request via formatter, pulling
// endpoint_tag and guard_short_circuit out of gin context keys the route
// handler sets before it returns.
func accessLogMiddleware(l *log.Logger, color bool, requestIDHeaderKey string, formatter *logx.AccessLogFormatter) gin.HandlerFunc {
	requestIDHeaderKey = requestid.ResolveHeaderKey(requestIDHeaderKey)
	if l == nil {
		l = log.New(os.Stdout, "", log.LstdFlags)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		fields := map[string]any{
			"request_id": c.GetString(requestIDHeaderKey),
		}
		if v, ok := c.Get(ctxKeyEndpointTag); ok {
			fields["endpoint_tag"] = v
		}
		if v, ok := c.Get(ctxKeyGuardShortCircuit); ok {
			fields["guard_short_circuit"] = v
		}

		if formatter == nil {
			return
		}
		l.Println(formatter.Format(time.Now(), status, latency, c.ClientIP(), c.Request.Method, c.Request.URL.Path, fields, color))
	}
}
