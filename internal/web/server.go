package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"github.com/pooltrack/pooltrack/internal/auth"
	"github.com/pooltrack/pooltrack/internal/insight"
	"github.com/pooltrack/pooltrack/internal/logger"
	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// Config wires the server's collaborators.
type Config struct {
	Port     string
	Repo     state.Repository
	Prices   *pricing.Client
	Analyzer *insight.Analyzer
	Sessions *auth.Sessions
	Feed     *state.Feed

	// HealthCheck probes the storage backend; nil means always healthy.
	HealthCheck func() error
}

// Server handles HTTP requests for the tracker dashboard API.
type Server struct {
	router      *mux.Router
	port        string
	repo        state.Repository
	prices      *pricing.Client
	analyzer    *insight.Analyzer
	sessions    *auth.Sessions
	feed        *state.Feed
	healthCheck func() error
	startedAt   time.Time
}

// NewServer creates a server instance with all routes configured.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	server := &Server{
		router:      mux.NewRouter(),
		port:        port,
		repo:        cfg.Repo,
		prices:      cfg.Prices,
		analyzer:    cfg.Analyzer,
		sessions:    cfg.Sessions,
		feed:        cfg.Feed,
		healthCheck: cfg.HealthCheck,
		startedAt:   time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session minting happens before a token exists, so it sits outside
	// the authenticated subrouter.
	s.router.HandleFunc("/api/session", s.handleCreateSession).Methods("POST")

	s.router.Handle("/ws", s.sessions.RequireOwner(http.HandlerFunc(s.handleWebSocket))).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.sessions.RequireOwner)

	api.HandleFunc("/pools", s.handleListPools).Methods("GET")
	api.HandleFunc("/pools", s.handleCreatePool).Methods("POST")
	api.HandleFunc("/pools/{id}", s.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}", s.handleUpdatePool).Methods("PUT")
	api.HandleFunc("/pools/{id}", s.handleDeletePool).Methods("DELETE")
	api.HandleFunc("/pools/{id}/metrics", s.handlePoolMetrics).Methods("GET")
	api.HandleFunc("/pools/{id}/entries", s.handleUpsertEntry).Methods("POST")
	api.HandleFunc("/pools/{id}/insight", s.handleSuggestYield).Methods("POST")
	api.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods("DELETE")
	api.HandleFunc("/portfolio/summary", s.handlePortfolioSummary).Methods("GET")
	api.HandleFunc("/portfolio/series", s.handlePortfolioSeries).Methods("GET")
	api.HandleFunc("/prices", s.handlePrices).Methods("GET")
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleSaveSettings).Methods("PUT")

	// Preflight requests must match a route for the middleware chain to
	// run; the method-restricted routes above alone would 405 them before
	// corsMiddleware gets a chance to answer.
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	webLogger.Info().Str("port", s.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		webLogger.Info().Msg("Shutting down web server")
		return server.Shutdown(shutdownCtx)
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if s.healthCheck != nil {
		if err := s.healthCheck(); err != nil {
			webLogger.Error().Err(err).Msg("Storage health check failed")
			dbHealthy = false
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "pooltrack-api",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
	}

	s.writeJSONResponse(w, statusCode, response)
}

// handleCreateSession mints a session token for development and personal
// deployments, standing in for an external identity provider.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OwnerID string `json:"ownerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.OwnerID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	token, err := s.sessions.Issue(payload.OwnerID)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to issue session token")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to issue session token")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"token": token})
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	s.writeJSONResponse(w, statusCode, response)
}

// writeValidationErrors writes a 400 with per-field messages.
func (s *Server) writeValidationErrors(w http.ResponseWriter, fields map[string]string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   "validation failed",
		"fields":    fields,
		"timestamp": time.Now().UTC(),
	}

	s.writeJSONResponse(w, http.StatusBadRequest, response)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets the websocket upgrade work through the logging wrapper.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying writer does not support hijacking")
	}
	return hijacker.Hijack()
}
