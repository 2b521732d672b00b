package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/af-corp/imagerouter/internal/auth"
	"github.com/af-corp/imagerouter/internal/provider"
	"github.com/af-corp/imagerouter/internal/ratelimit"
	"github.com/af-corp/imagerouter/internal/telemetry"
)

// ServerDeps are the collaborators of the HTTP surface.
type ServerDeps struct {
	Handler    *Handler
	Keys       auth.KeyStore
	Limiter    *ratelimit.Limiter
	DefaultRPM int
	Metrics    *telemetry.Metrics
	Health     *provider.HealthTracker
	Version    string
}

// NewRouter wires the routes and middleware.
func NewRouter(d ServerDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestID)

	r.Get("/imagerouter/v1/health", Health(d.Version, d.Health))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.Keys))
		r.Use(ratelimit.Middleware(d.Limiter, d.DefaultRPM, d.Metrics))
		r.Post(routeIntent, d.Handler.Intent)
		r.Get(routeLexicon, d.Handler.Lexicon)
	})
	return r
}
