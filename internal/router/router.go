// Package router registers one gin route per DSL endpoint path and wires
// the access-log/request-id middleware around them.
package router

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/engine"
	"github.com/lattice-http/lattice/internal/httpbridge"
	"github.com/lattice-http/lattice/internal/logx"
)

// New builds a *gin.Engine serving one route per distinct URL path in
// endpoints, dispatching on method, plus a /healthz probe. Each endpoint's
// Engine is built once up front from factory.
func New(
	endpoints *dsl.EndpointsCollection,
	factory *engine.Factory,
	accessLog bool,
	accessLogger *log.Logger,
	accessColor bool,
	accessFormatter *logx.AccessLogFormatter,
	requestIDHeaderKey string,
) *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware(requestIDHeaderKey))
	if accessLog {
		r.Use(accessLogMiddleware(accessLogger, accessColor, requestIDHeaderKey, accessFormatter))
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for path, eps := range endpoints.ByPath() {
		group := r.Group(path)
		for _, ep := range eps {
			eng := factory.FromEndpoint(ep)
			handler := makeHandler(eng, ep.Tag)
			switch ep.Method {
			case http.MethodGet:
				group.GET("", handler)
			case http.MethodPost:
				group.POST("", handler)
			default:
				log.Printf("WARNING [router] endpoint %s %s: unsupported method, skipping", ep.Method, path)
			}
		}
	}

	return r
}

func makeHandler(eng *engine.Engine, tag string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyEndpointTag, tag)
		req := httpbridge.BuildRequest(c)
		resp := eng.Execute(c.Request.Context(), req)
		c.Set(ctxKeyGuardShortCircuit, resp.GuardShortCircuited)
		httpbridge.WriteResponse(c, resp)
	}
}
