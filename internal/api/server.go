// Package api exposes the gateway over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lexgate/internal/config"
	"lexgate/internal/gateway"
	"lexgate/internal/logging"
	"lexgate/internal/types"
)

// maxBodyBytes caps POST /search bodies.
const maxBodyBytes = 64 << 10

// Searcher is the orchestrator as seen by the HTTP layer.
type Searcher interface {
	HandleSearch(ctx context.Context, req types.SearchRequest) (*gateway.SearchResponse, error)
	Sources() []types.Source
}

// Options configure the HTTP surface.
type Options struct {
	Service            string
	Version            string
	SharedSecret       string
	RateLimitPerMinute int
	RateLimitBurst     int
	DefaultMaxResults  int
	MaxResultsCap      int

	// BrowserConnected, when set, is reported on /health. It must not block.
	BrowserConnected func() bool
}

// OptionsFromConfig maps the server and provider sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Service:            cfg.Name,
		Version:            cfg.Version,
		SharedSecret:       cfg.Server.SharedSecret,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
		DefaultMaxResults:  cfg.Provider.DefaultMaxResults,
		MaxResultsCap:      cfg.Provider.MaxResultsCap,
	}
}

// Server routes HTTP requests to the orchestrator.
type Server struct {
	searcher Searcher
	opts     Options
	limiter  *clientLimiter
}

// NewServer creates a server. Zero option values fall back to defaults.
func NewServer(searcher Searcher, opts Options) *Server {
	if opts.Service == "" {
		opts.Service = "lexgate"
	}
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = 15
	}
	if opts.MaxResultsCap <= 0 {
		opts.MaxResultsCap = 100
	}
	s := &Server{searcher: searcher, opts: opts}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = newClientLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst, 10*time.Minute)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", s.handleHealth)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	router.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Post("/search", s.handleSearch)
	})
	return router
}

// requestLogger logs one line per request through the api category.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.API("%s %s %d %dB %v req=%s", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(start), middleware.GetReqID(r.Context()))
	})
}
