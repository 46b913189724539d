// Package server assembles the HTTP router: routes, tracing, metrics, request ids, CORS, panic recovery and access logs.
package server

import (
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"

	clienthandler "crm-backend/internal/client/handler"
	healthhandler "crm-backend/internal/health/handler"
	"crm-backend/internal/server/middleware"
)

// meterName is the instrumentation scope for HTTP request metrics.
const meterName = "crm-backend/internal/server"

// Deps holds the route handlers and options for the HTTP router.
type Deps struct {
	// Clients serves /api/clients. Required.
	Clients *clienthandler.Handler
	// Health serves /, /test and /healthz. Required.
	Health *healthhandler.Server
	// ServiceName names spans created by otelmux.
	ServiceName string
	// AccessLog receives Apache combined-format access logs. If nil, access logs are not written.
	AccessLog io.Writer
}

// NewRouter returns the HTTP handler for the service.
//
// Outer to inner: panic recovery → access log → proxy headers → CORS → request id → mux
// (otelmux tracing → metrics → route handler). Tracer and meter come from the global providers.
func NewRouter(deps Deps) (http.Handler, error) {
	r := mux.NewRouter()

	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "crm-backend"
	}
	r.Use(otelmux.Middleware(serviceName))

	metrics, err := middleware.NewMetrics(otel.GetMeterProvider().Meter(meterName))
	if err != nil {
		return nil, err
	}
	r.Use(metrics.Middleware)

	deps.Health.Register(r)
	deps.Clients.Register(r)

	return wrap(r, deps.AccessLog), nil
}

// wrap applies the middleware that runs before routing.
func wrap(next http.Handler, accessLog io.Writer) http.Handler {
	h := middleware.RequestID(next)
	h = newCORS().Handler(h)
	h = handlers.ProxyHeaders(h)
	if accessLog != nil {
		h = handlers.CombinedLoggingHandler(accessLog, h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.Default()),
		handlers.PrintRecoveryStack(true),
	)(h)
}

// newCORS allows any origin, method and header with credentials. The request origin is echoed
// rather than "*", which browsers reject alongside credentials.
func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods:  []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
}
