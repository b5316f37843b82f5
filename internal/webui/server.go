// Package webui serves the live state of a running mining service:
// the current window snapshot, its closed-itemset lattice, and advisor
// suggestions, as JSON for a dashboard plus a minimal HTML page.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/cfiminer/miner/internal/advisor"
	"github.com/cfiminer/miner/internal/driver"
	"github.com/cfiminer/miner/internal/formatter"
	"github.com/cfiminer/miner/internal/repository"
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

// MiningService is the subset of driver.Service the web UI depends on,
// kept narrow so it can be faked in tests without wiring a database.
type MiningService interface {
	Snapshot() *model.WindowSnapshot
	LatticeGraph() *model.LatticeGraph
	Stats() driver.Stats
	HealthCheck(ctx context.Context) error
}

// Server serves the live state of a mining service over HTTP.
type Server struct {
	service  MiningService
	repos    *repository.Repositories
	advisor  *advisor.Advisor
	registry *formatter.Registry
	port     int
	logger   utils.Logger
	server   *http.Server
}

// NewServer creates a new web UI server fronting service.
// repos may be nil, in which case history endpoints are unavailable.
func NewServer(service MiningService, repos *repository.Repositories, port int, logger utils.Logger) *Server {
	return &Server{
		service:  service,
		repos:    repos,
		advisor:  advisor.NewAdvisor(),
		registry: formatter.NewRegistry(),
		port:     port,
		logger:   logger,
	}
}

// Start starts the web server. It blocks until the server stops or errors.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/lattice", s.handleLattice)
	mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	mux.HandleFunc("/api/history/snapshots", s.handleSnapshotHistory)
	mux.HandleFunc("/api/history/suggestions", s.handleSuggestionHistory)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting web server at http://localhost:%d", s.port)
	s.logger.Info("Press Ctrl+C to stop")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>cfiminer</title>
</head>
<body>
  <h1>cfiminer</h1>
  <p>Live closed-frequent-itemset mining over a sliding transaction window.</p>
  <ul>
    <li><a href="/api/snapshot">/api/snapshot</a> - current window snapshot</li>
    <li><a href="/api/lattice">/api/lattice</a> - closed-itemset lattice</li>
    <li><a href="/api/suggestions">/api/suggestions</a> - advisor suggestions for the current snapshot</li>
    <li><a href="/api/stats">/api/stats</a> - service statistics</li>
    <li><a href="/api/health">/api/health</a> - health check</li>
  </ul>
</body>
</html>
`

// handleIndex serves a minimal landing page linking to the JSON endpoints.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		s.logger.Error("failed to parse index template: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, nil); err != nil {
		s.logger.Error("failed to execute index template: %v", err)
	}
}

// handleSnapshot returns the current window snapshot. The format query
// parameter ("text" or "json", default "json") selects the rendering.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot available", http.StatusNotFound)
		return
	}

	format := formatter.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = formatter.FormatJSON
	}

	suggestions := s.currentSuggestions(snap)
	summary := s.registry.FormatSummary(format, snap, suggestions)

	writeJSON(w, summary)
}

// handleLattice returns the closed-itemset lattice for the current window.
func (s *Server) handleLattice(w http.ResponseWriter, r *http.Request) {
	graph := s.service.LatticeGraph()
	if graph == nil {
		http.Error(w, "no lattice available", http.StatusNotFound)
		return
	}
	writeJSON(w, graph)
}

// handleSuggestions runs the advisor against the current snapshot and
// returns its suggestions, independent of anything persisted to the
// database.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot available", http.StatusNotFound)
		return
	}
	writeJSON(w, s.currentSuggestions(snap))
}

func (s *Server) currentSuggestions(snap *model.WindowSnapshot) []model.MiningSuggestion {
	if s.advisor == nil {
		return nil
	}
	return s.advisor.Advise(advisor.NewRuleContext(snap))
}

// handleSnapshotHistory lists persisted snapshots for an engine, newest
// first. Requires engine and optionally limit query parameters.
func (s *Server) handleSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	if s.repos == nil {
		http.Error(w, "history unavailable: no database configured", http.StatusServiceUnavailable)
		return
	}

	engineKind := model.EngineKind(r.URL.Query().Get("engine"))
	if engineKind == "" {
		http.Error(w, "engine query parameter is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 20)

	snapshots, err := s.repos.Snapshot.ListSnapshots(r.Context(), engineKind, limit)
	if err != nil {
		s.logger.Error("failed to list snapshots: %v", err)
		http.Error(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snapshots)
}

// handleSuggestionHistory lists persisted advisor suggestions for an
// engine, newest first.
func (s *Server) handleSuggestionHistory(w http.ResponseWriter, r *http.Request) {
	if s.repos == nil {
		http.Error(w, "history unavailable: no database configured", http.StatusServiceUnavailable)
		return
	}

	engineKind := model.EngineKind(r.URL.Query().Get("engine"))
	if engineKind == "" {
		http.Error(w, "engine query parameter is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 20)

	suggestions, err := s.repos.Suggestion.GetSuggestions(r.Context(), engineKind, limit)
	if err != nil {
		s.logger.Error("failed to list suggestions: %v", err)
		http.Error(w, "failed to list suggestions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, suggestions)
}

// handleStats returns current service statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Stats())
}

// handleHealth reports whether the service's database and sources are
// reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.HealthCheck(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
