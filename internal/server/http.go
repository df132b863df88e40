// Package server exposes the recommendation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/assesskit/recommender/internal/auth"
	"github.com/assesskit/recommender/internal/recommender"
)

// HTTPServer wraps the HTTP boundary around a Recommender.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger
}

// Config holds configuration for the HTTP server.
type Config struct {
	Port        int
	DefaultTopK int
	Logger      *slog.Logger
	Auth        *auth.Middleware // optional
}

// recommendRequest is the request body for POST /v1/recommend.
type recommendRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// recommendResponse is the response body for POST /v1/recommend.
type recommendResponse struct {
	RecommendedAssessments []recommender.Result `json:"recommended_assessments"`
}

// errorResponse is the error body shared by all endpoints.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New creates the HTTP server around a recommender.
func New(cfg Config, rec *recommender.Recommender) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaultTopK := cfg.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = 10
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", healthCheckHandler())
	router.Get("/readyz", readinessCheckHandler(rec))

	router.Group(func(r chi.Router) {
		if cfg.Auth != nil && cfg.Auth.Enabled() {
			r.Use(cfg.Auth.Handler)
		}
		r.Post("/v1/recommend", recommendHandler(rec, defaultTopK, logger))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &HTTPServer{server: server, router: router, logger: logger}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}

// Router returns the underlying chi router, primarily for tests.
func (s *HTTPServer) Router() *chi.Mux {
	return s.router
}

// recommendHandler serves POST /v1/recommend.
func recommendHandler(rec *recommender.Recommender, defaultTopK int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recommendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
			return
		}
		if req.TopK == 0 {
			req.TopK = defaultTopK
		}

		results, err := rec.Recommend(r.Context(), req.Query, req.TopK)
		if err != nil {
			writeRecommendError(w, r, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(recommendResponse{RecommendedAssessments: results})
	}
}

// writeRecommendError maps pipeline errors to client-observable codes.
// Validation failures are the client's to fix; fetch failures point at
// the submitted URL; everything else is a server-side fault.
func writeRecommendError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, recommender.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", "query must not be empty")
	case errors.Is(err, recommender.ErrInvalidTopK):
		writeError(w, http.StatusBadRequest, "invalid_top_k", "top_k must be a positive integer")
	case errors.Is(err, recommender.ErrUpstreamFetch):
		writeError(w, http.StatusBadGateway, "upstream_fetch_failed", "could not fetch the submitted URL")
	default:
		logger.Error("recommendation failed",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}

// readinessCheckHandler reports ready once a catalog snapshot is loaded.
func readinessCheckHandler(rec *recommender.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !rec.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
