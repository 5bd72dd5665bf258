// Package web exposes a read-only status API over HTTP.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/tentwatch/growmond/internal/engine"
	"github.com/tentwatch/growmond/internal/ledger"
)

// Server serves current verdicts and ledger history for all growspaces.
type Server struct {
	addr       string
	registry   *engine.Registry
	ledger     *ledger.Ledger
	httpServer *http.Server
}

// NewServer creates a new status server.
func NewServer(host string, port int, registry *engine.Registry, led *ledger.Ledger) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		registry: registry,
		ledger:   led,
	}
}

// Run starts the status server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/growspaces", s.handleGrowspaces).Methods(http.MethodGet)
	router.HandleFunc("/growspaces/{id}", s.handleGrowspace).Methods(http.MethodGet)
	router.HandleFunc("/growspaces/{id}/verdicts", s.handleVerdictHistory).Methods(http.MethodGet)
	router.HandleFunc("/growspaces/{id}/light_windows", s.handleLightWindows).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: router,
	}

	log.Info().Str("addr", s.addr).Msg("Starting status server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGrowspaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"growspaces": s.registry.IDs()})
}

type growspaceStatus struct {
	ID       string                     `json:"id"`
	Verdicts []engine.VerdictEvent      `json:"verdicts"`
	Schedule *engine.LightScheduleEvent `json:"light_schedule,omitempty"`
}

func (s *Server) handleGrowspace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	orch, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown growspace")
		return
	}

	status := growspaceStatus{ID: id, Schedule: orch.Schedule()}
	for _, v := range orch.Verdicts() {
		status.Verdicts = append(status.Verdicts, v)
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleVerdictHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "unknown growspace")
		return
	}

	condition := r.URL.Query().Get("condition")
	entries, err := s.ledger.Verdicts(id, condition, queryLimit(r))
	if err != nil {
		log.Error().Err(err).Str("growspace", id).Msg("Failed to query verdict ledger")
		writeError(w, http.StatusInternalServerError, "ledger query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verdicts": entries})
}

func (s *Server) handleLightWindows(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "unknown growspace")
		return
	}

	entries, err := s.ledger.LightWindows(id, queryLimit(r))
	if err != nil {
		log.Error().Err(err).Str("growspace", id).Msg("Failed to query light window ledger")
		writeError(w, http.StatusInternalServerError, "ledger query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"light_windows": entries})
}

const defaultHistoryLimit = 100

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
