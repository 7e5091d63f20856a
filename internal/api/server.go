// Package api serves the analytics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/metrics"
	"hypervisor-analytics/internal/observability"
	"hypervisor-analytics/internal/service"
	"hypervisor-analytics/internal/storage"
	"hypervisor-analytics/internal/twa"
)

// Analytics is the query surface the API needs.
type Analytics interface {
	Returns(ctx context.Context, chain domain.Chain, address string, q service.Query) (*service.ReturnsResponse, error)
	ReturnsCSV(ctx context.Context, chain domain.Chain, address string, q service.Query) ([]byte, error)
	Rewards(ctx context.Context, chain domain.Chain, address string, q service.Query) (*service.RewardsResponse, error)
	TWA(ctx context.Context, chain domain.Chain, address string, w *twa.Window) (*twa.Result, error)
}

// Server routes HTTP requests to the analytics service.
type Server struct {
	analytics   Analytics
	hypervisors storage.HypervisorStore
	aggregator  *metrics.Aggregator // nil when rows are not persisted
	limiter     *rate.Limiter       // nil disables rate limiting
	logger      *zap.Logger
	clock       func() time.Time
}

// Options for creating a Server.
type Options struct {
	Analytics   Analytics
	Hypervisors storage.HypervisorStore
	Rows        storage.AnalyticRowStore
	Config      config.ServerConfig
	Logger      *zap.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	s := &Server{
		analytics:   opts.Analytics,
		hypervisors: opts.Hypervisors,
		logger:      logging.OrNop(opts.Logger),
		clock:       time.Now,
	}
	if opts.Rows != nil {
		s.aggregator = metrics.NewAggregator(opts.Rows)
	}
	if opts.Config.RateLimitRPS > 0 {
		burst := opts.Config.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.Config.RateLimitRPS), burst)
	}
	return s
}

// Router returns the router with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withMetrics)

	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.withRateLimit)
	v1.HandleFunc("/hypervisors", s.HandleHypervisors).Methods(http.MethodGet)
	v1.HandleFunc("/{chain}/hypervisors/{address}/returns", s.HandleReturns).Methods(http.MethodGet)
	v1.HandleFunc("/{chain}/hypervisors/{address}/returns.csv", s.HandleReturnsCSV).Methods(http.MethodGet)
	v1.HandleFunc("/{chain}/hypervisors/{address}/rewards", s.HandleRewards).Methods(http.MethodGet)
	v1.HandleFunc("/{chain}/hypervisors/{address}/twa", s.HandleTWA).Methods(http.MethodGet)
	v1.HandleFunc("/{chain}/hypervisors/{address}/distribution", s.HandleDistribution).Methods(http.MethodGet)

	return r
}

// HTTPServer wraps the router with the timeouts used in production.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
