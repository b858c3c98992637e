// Package web serves the comparison API: live comparisons streamed as SSE,
// file comparisons, and stored results.
package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/visualgate/internal/browser"
	"github.com/kamilpajak/visualgate/internal/judge"
	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/store"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// Config holds API server dependencies. Judge, Store and Launch are optional.
// Browser requests are served only for AllowedOrigins; requests without an
// Origin header (CLI clients, scripts) are always served.
type Config struct {
	Differ         *pixeldiff.Differ
	Judge          judge.Judge
	Store          store.Store
	Launch         browser.Launcher
	PassThreshold  float64
	FailThreshold  float64
	AllowedOrigins []string
	Log            zerolog.Logger
}

// Server is the API server.
type Server struct {
	cfg     Config
	log     zerolog.Logger
	mux     *http.ServeMux
	origins map[string]bool
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	if cfg.FailThreshold == 0 {
		cfg.PassThreshold, cfg.FailThreshold = models.DefaultPassThreshold, models.DefaultFailThreshold
	}
	s := &Server{
		cfg:     cfg,
		log:     cfg.Log.With().Str("component", "web").Logger(),
		mux:     http.NewServeMux(),
		origins: make(map[string]bool, len(cfg.AllowedOrigins)),
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[strings.TrimRight(o, "/")] = true
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/compare", s.handleCompare)
	s.mux.HandleFunc("POST /api/compare/files", s.handleCompareFiles)

	s.mux.HandleFunc("GET /api/results", s.handleListResults)
	s.mux.HandleFunc("GET /api/results/{id}", s.handleGetResult)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Vary", "Origin")
	if origin := r.Header.Get("Origin"); origin != "" {
		if !s.origins[origin] {
			s.log.Warn().Str("origin", origin).Str("path", r.URL.Path).Msg("rejected cross-origin request")
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"judge":   s.cfg.Judge != nil,
		"store":   s.cfg.Store != nil,
		"browser": s.cfg.Launch != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
