package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"mailkeep-hq/mailkeep/pkg/config"
	"mailkeep-hq/mailkeep/pkg/engine"
	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/policy"
	"mailkeep-hq/mailkeep/pkg/telemetry/health"
)

// Server is the status HTTP server. It exposes health probes,
// Prometheus metrics, and a small JSON API for inspecting and steering
// cleanup jobs and policies.
type Server struct {
	config       *config.ServerConfig
	engine       *engine.Engine
	store        jobs.Store
	registry     *policy.Registry
	checker      *health.Checker
	metrics      http.Handler
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Dependencies holds the collaborators the status server serves.
type Dependencies struct {
	Engine   *engine.Engine
	Store    jobs.Store
	Registry *policy.Registry
	Checker  *health.Checker

	// Metrics is the metrics endpoint handler, typically
	// promhttp.Handler(). Nil disables the /metrics route.
	Metrics http.Handler

	Logger *slog.Logger
}

// NewServer creates a status server.
func NewServer(cfg *config.ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("policy registry is required")
	}

	checker := deps.Checker
	if checker == nil {
		checker = health.New(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:   cfg,
		engine:   deps.Engine,
		store:    deps.Store,
		registry: deps.Registry,
		checker:  checker,
		metrics:  deps.Metrics,
		logger:   logger.With("component", "status_server"),
	}, nil
}

// Start starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting status server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("status server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", s.checker.LivenessHandler())
	mux.Handle("GET /readyz", s.checker.ReadinessHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /api/v1/jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("GET /api/v1/policies", s.handleListPolicies)
	mux.HandleFunc("POST /api/v1/policies/{id}/run", s.handleRunPolicy)
	mux.HandleFunc("GET /api/v1/executions", s.handleListExecutions)

	return s.logRequests(mux)
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
