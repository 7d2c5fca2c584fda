package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crossrealm/xrealmd/pkg/store"
	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

// Server is the HTTP API server.
type Server struct {
	store  *store.Store
	engine *xrealm.Engine
	logger *slog.Logger
}

// NewServer creates an API server over the given store and decision engine.
func NewServer(s *store.Store, engine *xrealm.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  s,
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Decision hook (hot path) and audit trail
	mux.HandleFunc("POST /api/v1/decisions", s.handleDecide)
	mux.HandleFunc("GET /api/v1/decisions/log", s.handleDecisionLog)

	// Trust edge attribute management
	mux.HandleFunc("GET /api/v1/edges/{edge}/attributes", s.handleListEdgeAttributes)
	mux.HandleFunc("POST /api/v1/edges/{edge}/attributes", s.handleSetEdgeAttribute)
	mux.HandleFunc("DELETE /api/v1/edges/{edge}/attributes/{key}", s.handleDeleteEdgeAttribute)

	// Principal management (raw store access)
	mux.HandleFunc("GET /api/v1/principals", s.handleListPrincipals)
	mux.HandleFunc("POST /api/v1/principals", s.handleAddPrincipal)
	mux.HandleFunc("DELETE /api/v1/principals/{name}", s.handleRemovePrincipal)

	// Health checks
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
}

// Handler returns the fully assembled handler: routes wrapped in request-ID
// and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.requestIDMiddleware(s.loggingMiddleware(mux))
}

// requestIDMiddleware assigns each request a UUID and threads it through the
// context so decision audit entries can be correlated with access logs.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(xrealm.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", xrealm.RequestIDFromContext(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready means the store answers queries.
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, r, s.logger, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, message string) {
	logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", message,
	)
	writeJSON(w, status, map[string]string{"error": message})
}

// writeInternalError logs the detailed error and returns a generic message
// so storage internals do not leak to clients.
func writeInternalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, genericMsg string) {
	logger.Error("internal error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": genericMsg})
}
