// Package api provides the REST API server for newsdesk.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/RobinCoderZhao/newsdesk/internal/news/aggregator"
	"github.com/RobinCoderZhao/newsdesk/internal/news/prefs"
	"github.com/RobinCoderZhao/newsdesk/pkg/logctx"
)

// Options configures optional Server behaviour.
type Options struct {
	// JWTSecret enables bearer-token auth for preferences and personalized
	// feeds. Empty disables auth and all clients share one preference set.
	JWTSecret     string
	AllowedOrigin string
	Logger        *slog.Logger
}

// Server holds the dependencies for the API.
type Server struct {
	aggregator    *aggregator.Aggregator
	settings      prefs.KV
	jwtSecret     []byte
	allowedOrigin string
	logger        *slog.Logger
}

// NewServer creates a new API Server instance.
func NewServer(agg *aggregator.Aggregator, settings prefs.KV, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		aggregator:    agg,
		settings:      settings,
		jwtSecret:     []byte(opts.JWTSecret),
		allowedOrigin: opts.AllowedOrigin,
		logger:        logctx.Logger(logger),
	}
}

// Routes returns the configured http.Handler for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Feed
	mux.HandleFunc("GET /api/news", s.handleNews())
	mux.HandleFunc("GET /api/sources", s.handleListSources())
	mux.HandleFunc("GET /api/categories", s.handleListCategories())

	// Preferences
	mux.Handle("GET /api/preferences", s.requireAuthHandler(http.HandlerFunc(s.handleGetPreferences())))
	mux.Handle("PUT /api/preferences", s.requireAuthHandler(http.HandlerFunc(s.handlePutPreferences())))

	return s.requestLogger(s.cors(mux))
}

// preferencesFor returns the preference store scoped to subject.
func (s *Server) preferencesFor(subject string) *prefs.Store {
	if subject == "" {
		return prefs.NewStore(s.settings)
	}
	return prefs.NewStore(prefs.Namespaced(s.settings, "user:"+subject+":"))
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
