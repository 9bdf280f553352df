// Package server exposes fit assessments over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/config"
	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/logger"
	"github.com/jonathan/fit-agent/internal/pipeline"
	"github.com/jonathan/fit-agent/internal/server/middleware"
	"github.com/jonathan/fit-agent/internal/server/ratelimit"
	"github.com/jonathan/fit-agent/internal/types"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 30 * time.Second

// Runner executes one assessment. *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, req types.AssessRequest, ch *events.Channel) (*pipeline.State, error)
}

// Options configures a Server
type Options struct {
	Server    config.ServerConfig
	Auth      config.AuthConfig
	RateLimit config.RateLimitConfig
	Breakers  *breaker.Set
	Logger    *zap.Logger
	// KeepAlive is the interval of SSE comment lines on an idle stream; zero disables them.
	KeepAlive time.Duration
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	runner     Runner
	breakers   *breaker.Set
	auth       config.AuthConfig
	jwt        *JWTService // nil when auth is disabled
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
	keepAlive  time.Duration
}

// New creates a server around runner
func New(runner Runner, opts Options) (*Server, error) {
	if runner == nil {
		return nil, errors.New("server: runner is required")
	}

	s := &Server{
		runner:    runner,
		breakers:  opts.Breakers,
		auth:      opts.Auth,
		logger:    logger.OrNop(opts.Logger),
		keepAlive: opts.KeepAlive,
	}
	if opts.Auth.Enabled {
		s.jwt = NewJWTService(opts.Auth)
	}
	s.limiter = ratelimit.NewLimiter(rateLimitConfig(opts.RateLimit))

	mux := http.NewServeMux()
	mux.Handle("POST /assess/stream", s.protect(s.handleAssessStream))
	mux.Handle("POST /assess", s.protect(s.handleAssess))
	mux.Handle("GET /breakers", s.protect(s.handleBreakers))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /token", s.handleToken)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Server.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  opts.Server.ReadTimeout,
		WriteTimeout: opts.Server.WriteTimeout, // covers a whole streamed assessment
		IdleTimeout:  opts.Server.IdleTimeout,
	}
	return s, nil
}

func rateLimitConfig(c config.RateLimitConfig) ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.Enabled = c.Enabled
	if c.RequestsPerMinute > 0 {
		cfg.RequestsPerMinute = c.RequestsPerMinute
	}
	if c.Burst > 0 {
		cfg.Burst = c.Burst
	}
	if c.ExemptPaths != nil {
		cfg.ExemptPaths = c.ExemptPaths
	}
	return cfg
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr), zap.Bool("auth", s.jwt != nil))
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// protect requires a bearer token when auth is enabled
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.jwt == nil {
		return h
	}
	return middleware.Auth(s.jwt.AsTokenValidator())(h)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Last-Event-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging. It forwards
// Flush so streaming still works behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)),
		}
		if id, ok := middleware.ClientID(r); ok {
			fields = append(fields, zap.String("client_id", id))
		}
		s.logger.Info("http request", fields...)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.limiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID identifies the caller for rate limiting by remote IP.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	retryAfter := int(info.RetryAfter.Round(time.Second).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	s.logger.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, ErrorResponse{
		Error:   "rate_limit_exceeded",
		Message: fmt.Sprintf("Rate limit exceeded. Retry in %d seconds.", retryAfter),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// writeError maps err to a status and an ErrorResponse
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.jsonResponse(w, status, toErrorResponse(err))
}
