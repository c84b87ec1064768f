package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/platform/httpx"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 60 * time.Second
)

// RouteRegistrar mounts a set of endpoints on a route group.
type RouteRegistrar func(r chi.Router)

// RouterOption customises router assembly.
type RouterOption func(*routerConfig)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	parking     RouteRegistrar
}

// WithMiddlewares appends global middleware behind the built-in request-id,
// real-ip and timeout stack.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RouterOption {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers behind /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) RouterOption {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithParkingRoutes mounts the parking endpoints under the API prefix.
func WithParkingRoutes(reg RouteRegistrar) RouterOption {
	return func(cfg *routerConfig) {
		cfg.parking = reg
	}
}

// NewRouter assembles the service router. Unknown paths and disallowed
// methods render the shared JSON envelope instead of chi's plain-text
// defaults, on nested groups as well.
func NewRouter(opts ...RouterOption) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(requestTimeout),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	// Fallback handlers must be installed before any subrouter is mounted so
	// chi copies them into the nested groups.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w,
			httpx.NewError("route_not_found", "no route matches "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w,
			httpx.NewError("method_not_allowed", req.Method+" is not allowed on "+req.URL.Path, http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		api.Route("/parking", func(group chi.Router) {
			if cfg.parking != nil {
				cfg.parking(group)
				return
			}
			mountPlaceholder(group, "parking")
		})
	})

	return r
}

// mountPlaceholder answers every request on an unwired group with 501 so the
// route surface stays stable while a group is under construction.
func mountPlaceholder(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w,
			httpx.NewError("not_implemented", name+" routes are not implemented", http.StatusNotImplemented))
	}
	r.HandleFunc("/", handler)
	r.HandleFunc("/*", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}
