package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// jobResponse is the JSON shape of an import job.
type jobResponse struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	TotalRecords     int        `json:"totalRecords"`
	ProcessedRecords int        `json:"processedRecords"`
	CreatedRecords   int        `json:"createdRecords"`
	UpdatedRecords   int        `json:"updatedRecords"`
	SkippedRecords   int        `json:"skippedRecords"`
	ErrorMessage     *string    `json:"errorMessage,omitempty"`
}

func toJobResponse(job catalog.ImportJob) jobResponse {
	return jobResponse{
		ID:               job.ID.String(),
		Type:             string(job.Type),
		Status:           string(job.Status),
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
		TotalRecords:     job.TotalRecords,
		ProcessedRecords: job.ProcessedRecords,
		CreatedRecords:   job.CreatedRecords,
		UpdatedRecords:   job.UpdatedRecords,
		SkippedRecords:   job.SkippedRecords,
		ErrorMessage:     job.ErrorMessage,
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// healthResponse reports liveness plus the imports currently in flight in
// this process, so monitoring can see a wedged run without polling the jobs
// API per type.
type healthResponse struct {
	Status        string   `json:"status"`
	ActiveImports []string `json:"activeImports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		ActiveImports: s.runner.ActiveTypes(),
	})
}

// handleGetJob returns one import job by id.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: invalid job id", errBadRequest))
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toJobResponse(job))
}

// handleLatestJob returns the most recent job for ?type=.
func (s *Server) handleLatestJob(w http.ResponseWriter, r *http.Request) {
	t, err := catalog.ParseStoneType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	job, err := s.store.LatestJob(r.Context(), t)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toJobResponse(job))
}

// handleTriggerImport starts a run for the path's stone type and returns
// its PENDING job. A run already active for the type yields 409.
func (s *Server) handleTriggerImport(w http.ResponseWriter, r *http.Request) {
	t, err := catalog.ParseStoneType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	job, err := s.runner.Start(r.Context(), t)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, toJobResponse(job))
}

// handleCatalogStats returns aggregate entry counts for ?type=.
func (s *Server) handleCatalogStats(w http.ResponseWriter, r *http.Request) {
	t, err := catalog.ParseStoneType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	stats, err := s.store.Stats(r.Context(), t)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
