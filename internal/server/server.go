package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osse101/cosmos-agent/internal/handler"
	"github.com/osse101/cosmos-agent/internal/journal"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/metrics"
)

// Options configures the control API
type Options struct {
	Port           int
	APIKey         string
	TrustedProxies []string
	MaxBodyBytes   int64
	Detector       DetectorConfig
}

// Server exposes a session over HTTP
type Server struct {
	httpServer *http.Server
	router     chi.Router
}

// NewServer wires the control API. A nil journal disables /api/v1/journal.
// Without an API key the server only listens on loopback.
func NewServer(opts Options, agent handler.Agent, j journal.Service, checks map[string]handler.HealthChecker) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	detector := NewSuspiciousActivityDetector(opts.Detector)

	r.Use(SecurityHeadersMiddleware())
	r.Use(loggingMiddleware)
	r.Use(RateLimitMiddleware(opts.TrustedProxies, detector))
	if opts.APIKey != "" {
		r.Use(AuthMiddleware(opts.APIKey, opts.TrustedProxies, detector))
	}
	r.Use(RequestSizeLimitMiddleware(opts.MaxBodyBytes))
	r.Use(metrics.Middleware)

	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(checks))
	r.Get("/version", handler.HandleVersion())
	r.Handle("/metrics", promhttp.Handler())

	agentHandler := handler.NewAgentHandler(agent, j)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plan", agentHandler.HandlePlan())
		r.Get("/craftable", agentHandler.HandleCraftable())
		r.Get("/recipe", agentHandler.HandleRecipe())
		r.Get("/inventory", agentHandler.HandleInventory())
		r.Get("/land", agentHandler.HandleLand())
		r.Post("/craft", agentHandler.HandleCraft())
		r.Post("/place", agentHandler.HandlePlace())
		r.Post("/unlock", agentHandler.HandleUnlock())
		r.Post("/refresh", agentHandler.HandleRefresh())
		r.Get("/journal", agentHandler.HandleJournal())
	})

	host := ""
	if opts.APIKey == "" {
		slog.Warn(LogMsgLoopbackOnly)
		host = LoopbackHost
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(host, strconv.Itoa(opts.Port)),
			Handler:           r,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
		router: r,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// loggingMiddleware tags each API request with a request ID and logs its
// outcome. Probe and scrape endpoints are not logged.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ctx := logger.WithNewRequestID(r.Context())
		r = r.WithContext(ctx)
		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent())
		log.Debug(LogMsgRequestHeaders, "headers", redactHeaders(r.Header))

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func redactHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, HeaderAuthorization) {
			out[k] = []string{RedactedValue}
			continue
		}
		out[k] = v
	}
	return out
}

// Start listens until Stop is called. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	slog.Default().Info(LogMsgServerStopping)
	return s.httpServer.Shutdown(ctx)
}
