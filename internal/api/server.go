// Package api exposes the HTTP interface for the scanner service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/scanner"
	"github.com/civicwire/videoscan/internal/worker"
)

// Server wires HTTP handlers to the scan queue, job store, and state store.
// The served /scan-state endpoints make one serve instance usable as the
// remote primary for a fleet of one-shot scanners.
type Server struct {
	router chi.Router
	queue  worker.Queue
	jobs   *worker.JobStore
	states scanner.StateStore
	clock  scanner.Clock
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	queue worker.Queue,
	jobs *worker.JobStore,
	states scanner.StateStore,
	clock scanner.Clock,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queue:  queue,
		jobs:   jobs,
		states: states,
		clock:  clock,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/scan-state", s.getScanState)
	r.Put("/scan-state", s.putScanState)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", s.triggerScan)
			r.Get("/{job_id}", s.getScanJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) triggerScan(w http.ResponseWriter, r *http.Request) {
	jobID := uuid.NewString()
	now := s.clock.Now()
	s.jobs.Create(worker.ScanJob{
		ID:        jobID,
		Status:    worker.ScanStatusQueued,
		Submitted: now,
	})

	err := s.queue.Enqueue(r.Context(), worker.ScanRequest{
		JobID:     jobID,
		Submitted: now,
	})
	if err != nil {
		s.logger.Error("scan enqueue failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "scan queue unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getScanJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "job_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "scan job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getScanState(w http.ResponseWriter, r *http.Request) {
	state, found, err := s.states.Load(r.Context())
	if err != nil {
		s.logger.Error("scan-state load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "state unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no scan state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type putStateRequest struct {
	HighestValidID   int64 `json:"highestValidId"`
	HighestScannedID int64 `json:"highestScannedId"`
}

type putStateResponse struct {
	Success bool              `json:"success"`
	State   scanner.ScanState `json:"state"`
}

func (s *Server) putScanState(w http.ResponseWriter, r *http.Request) {
	var req putStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.HighestValidID < 0 || req.HighestScannedID < 0 ||
		req.HighestValidID > req.HighestScannedID {
		writeError(w, http.StatusBadRequest, "highestValidId must be <= highestScannedId")
		return
	}
	state := scanner.ScanState{
		HighestValidID:   req.HighestValidID,
		HighestScannedID: req.HighestScannedID,
		ScannedAt:        s.clock.Now(),
	}
	if err := s.states.Save(r.Context(), state); err != nil {
		s.logger.Error("scan-state save failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "state save failed")
		return
	}
	writeJSON(w, http.StatusOK, putStateResponse{Success: true, State: state})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
