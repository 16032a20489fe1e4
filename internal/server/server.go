// Package server provides the HTTP API of the language detector.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/health"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/middleware"
	"github.com/devrev/langdetect/internal/service"
)

// Server serves the detector over HTTP
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	detector   *service.DetectorService
	health     *health.HealthChecker
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	cfg        *config.Config
}

// NewServer creates the HTTP server and registers its routes. m may be nil;
// gatherer defaults to the global Prometheus registry.
func NewServer(
	cfg *config.Config,
	detector *service.DetectorService,
	healthChecker *health.HealthChecker,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter()
	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.HTTPPort)),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		detector: detector,
		health:   healthChecker,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	chain := s.middlewareChain()
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Probes
	s.router.HandleFunc("/health", s.health.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.health.ReadinessHandler).Methods(http.MethodGet)

	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	// API routes live on the root router so method mismatches reach
	// MethodNotAllowedHandler
	timeout := middleware.Timeout(s.cfg.Server.WriteTimeout)

	// Classification is rate limited; metadata routes are not
	limiter := middleware.NewRateLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst, s.logger)
	s.router.Handle("/v1/identify", timeout(limiter.Limit(http.HandlerFunc(s.Identify)))).
		Methods(http.MethodPost)
	s.router.Handle("/v1/identify/all", timeout(limiter.Limit(http.HandlerFunc(s.IdentifyAll)))).
		Methods(http.MethodPost)

	s.router.Handle("/v1/languages", timeout(http.HandlerFunc(s.Languages))).Methods(http.MethodGet)
	s.router.Handle("/v1/training", timeout(http.HandlerFunc(s.Training))).Methods(http.MethodGet)

	// mux does not run Use middleware for these two handlers
	s.router.NotFoundHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, ErrorResponse{
			Status:    "error",
			ErrorCode: "NOT_FOUND",
			Message:   "endpoint not found",
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}))
	s.router.MethodNotAllowedHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, ErrorResponse{
			Status:    "error",
			ErrorCode: "METHOD_NOT_ALLOWED",
			Message:   "method not allowed",
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}))
}

// middlewareChain returns the chain applied to every request
func (s *Server) middlewareChain() func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
	}
	if s.metrics != nil {
		mws = append(mws, middleware.Metrics(s.metrics))
	}
	return middleware.Chain(mws...)
}

// Handler returns the http.Handler for the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
