// Package http implements the REST API for the lifecycle engine: enrollment,
// progress recording, withdrawal, certificate reads, and semester-gate
// decisions, plus health endpoints for orchestration.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/application/command"
	"github.com/academica-hub/lifecycle-engine/internal/application/query"
)

// Config contains HTTP server settings.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// RateLimitPerMinute caps requests per client IP. Zero disables the
	// limiter.
	RateLimitPerMinute int
}

// DefaultConfig returns the settings used when the environment does not
// override them.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		RateLimitPerMinute: 100,
	}
}

// Address returns the bind address in "host:port" form.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HealthChecker reports per-dependency health for the readiness endpoints.
type HealthChecker interface {
	CheckHealth(ctx context.Context) map[string]string
}

// Dependencies carries the command and query handlers the routes dispatch
// to, one per lifecycle operation.
type Dependencies struct {
	EnrollHandler           *command.EnrollHandler
	RecordProgressHandler   *command.RecordProgressHandler
	WithdrawHandler         *command.WithdrawHandler
	IssueCertificateHandler *command.IssueCertificateHandler

	GetProgressHandler      *query.GetProgressHandler
	CanAdvanceHandler       *query.CanAdvanceHandler
	ListCertificatesHandler *query.ListCertificatesHandler

	Logger        *slog.Logger
	HealthChecker HealthChecker
}

// Server serves the engine's REST API.
type Server struct {
	config      Config
	deps        Dependencies
	logger      *slog.Logger
	httpServer  *http.Server
	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer wires routes and middleware but does not start listening.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.withMiddleware(s.routes()),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth) // kubernetes alias
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)

	mux.HandleFunc("POST /api/v1/enrollments", s.handleEnroll)
	mux.HandleFunc("POST /api/v1/enrollments/{student_id}/{course_id}/withdraw", s.handleWithdraw)

	mux.HandleFunc("POST /api/v1/progress/{student_id}/{course_id}/lessons/{lesson_id}", s.handleLessonCompleted)
	mux.HandleFunc("POST /api/v1/progress/{student_id}/{course_id}/assignments/{assignment_id}", s.handleAssignmentSubmitted)
	mux.HandleFunc("GET /api/v1/progress/{student_id}/{course_id}", s.handleGetProgress)

	mux.HandleFunc("POST /api/v1/certificates", s.handleIssueCertificate)
	mux.HandleFunc("GET /api/v1/students/{student_id}/certificates", s.handleListCertificates)

	mux.HandleFunc("GET /api/v1/advancement/{course_id}", s.handleCanAdvance)

	return mux
}

// withMiddleware wraps the routes so that, outermost first, rate limiting
// rejects floods, panics become 500s, and every surviving request is
// logged and tagged with a request ID.
func (s *Server) withMiddleware(h http.Handler) http.Handler {
	h = s.tagRequestID(h)
	h = s.logRequests(h)
	h = s.recoverPanics(h)
	if s.rateLimiter != nil {
		h = s.limitRate(h)
	}
	return h
}

func (s *Server) tagRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", getClientIP(r),
			"request_id", getRequestID(r.Context()),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"request_id", getRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitRate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start listens until the server is shut down. It blocks.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "address", s.config.Address())

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync runs Start on a goroutine and reports its outcome on the
// returned channel, which closes when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether Start has been called and Shutdown has not.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running, zero when stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the configured bind address.
func (s *Server) Address() string {
	return s.config.Address()
}
