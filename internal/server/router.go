// Package server wires the game HTTP surface: the page, health checks,
// exposition and the two ingestion endpoints.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/game2048-metrics/internal/web"
	"github.com/Sternrassler/game2048-metrics/pkg/metrics"
)

// ServiceName is reported by the JSON health check.
const ServiceName = "2048-game"

// Options configures the routers.
type Options struct {
	Registry *metrics.Registry
	Page     *web.Page
	Logger   zerolog.Logger

	// Strict makes programmer errors panic instead of returning a 500.
	// The recoverer still answers the request.
	Strict bool
}

// Handler holds the dependencies shared by all routes.
type Handler struct {
	registry *metrics.Registry
	page     *web.Page
	logger   zerolog.Logger
	strict   bool
}

// NewRouter returns the main web listener handler.
//
//	GET  /               game page
//	GET  /health         "OK"
//	GET  /metrics        text exposition
//	GET  /metrics/health JSON service health
//	POST /move           increments game_moves_total
//	POST /start          increments games_started_total
//
// HEAD is answered by the matching GET route. Unknown paths get the game page
// with 404; a known path with the wrong method gets a 400 JSON body.
func NewRouter(opts Options) http.Handler {
	h := &Handler{
		registry: opts.Registry,
		page:     opts.Page,
		logger:   opts.Logger,
		strict:   opts.Strict,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.GetHead)
	r.Use(RequestLogger(opts.Logger))
	r.Use(Recoverer(opts.Logger))

	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleBadRequest)

	r.Get("/", h.handleIndex)
	r.Get("/health", handleHealth)
	r.Get("/metrics", metrics.Handler(opts.Registry, opts.Logger).ServeHTTP)
	r.Get("/metrics/health", handleServiceHealth)

	r.Post("/move", h.recordEvent(metrics.GameMovesTotal, "Move recorded", "Failed to record move"))
	r.Post("/start", h.recordEvent(metrics.GamesStartedTotal, "Game start recorded", "Failed to record game start"))

	return r
}

// NewMetricsRouter returns the handler for the dedicated exposition listener.
// It shares the registry with the main router, so both /metrics endpoints
// always report the same values.
func NewMetricsRouter(reg *metrics.Registry, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.GetHead)
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))

	r.Get("/metrics", metrics.Handler(reg, logger).ServeHTTP)
	r.Get("/health", handleHealth)

	return r
}
