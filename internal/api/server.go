// Package api serves the report catalogue and the stops overview over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
)

// Catalogue is the part of the report catalogue the API serves.
type Catalogue interface {
	Reports() []*catalogue.Report
	Lookup(key string) (*catalogue.Report, error)
	RunReport(ctx context.Context, r *catalogue.Report) (*catalogue.Result, error)
	Overview(ctx context.Context) (*catalogue.OverviewResult, error)
}

// Pinger checks that the engine is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunHistory reports when the last ingestion completed.
type RunHistory interface {
	LastSuccess(ctx context.Context) (*time.Time, error)
}

// Config tunes the HTTP layer.
type Config struct {
	CORSOrigins       []string
	RateLimitRequests int // per client IP per window; zero disables limiting
	RateLimitWindow   time.Duration
}

// Server routes API requests to the catalogue.
type Server struct {
	cat  Catalogue
	db   Pinger
	runs RunHistory
	cfg  Config
	log  *zap.Logger
}

// New creates a Server. runs may be nil.
func New(cat Catalogue, db Pinger, runs RunHistory, cfg Config) *Server {
	return &Server{
		cat:  cat,
		db:   db,
		runs: runs,
		cfg:  cfg,
		log:  zap.L().With(zap.String("component", "api")),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, s.rateWindow()))
		}
		r.Use(s.observe)

		r.Get("/reports", s.listReports)
		r.Get("/reports/{slug}", s.runReport)
		r.Get("/overview", s.overview)
	})

	return r
}

func (s *Server) rateWindow() time.Duration {
	if s.cfg.RateLimitWindow <= 0 {
		return time.Minute
	}
	return s.cfg.RateLimitWindow
}
