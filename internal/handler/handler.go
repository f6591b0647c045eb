package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/edupay/agency-service/internal/models"
	"github.com/sirupsen/logrus"
)

// JobRunner executes one invocation of the overdue-detection job
type JobRunner interface {
	Run(ctx context.Context) (*models.JobExecution, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	svc        JobRunner
	jobTimeout time.Duration
	log        *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(svc JobRunner, jobTimeout time.Duration, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, jobTimeout: jobTimeout, log: log}
}

// jobResponse is the wire format of a job invocation result
type jobResponse struct {
	Success        bool                  `json:"success"`
	RecordsUpdated int64                 `json:"recordsUpdated"`
	Agencies       []models.AgencyResult `json:"agencies"`
	Error          string                `json:"error,omitempty"`
}

// RunOverdueDetection handles an external scheduler invocation of the
// overdue-detection job
func (h *Handler) RunOverdueDetection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.jobTimeout)
	defer cancel()

	entry, err := h.svc.Run(ctx)
	if err != nil {
		h.log.Errorf("Job invocation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, jobResponse{
			Success: false,
			Error:   "job execution failed",
		})
		return
	}

	resp := jobResponse{
		Success:        entry.Status == models.JobStatusSuccess,
		RecordsUpdated: entry.RecordsUpdated,
		Agencies:       entry.Metadata.Agencies,
		Error:          entry.ErrorMessage,
	}
	status := http.StatusOK
	if !resp.Success {
		// Partial aggregate is still reported: failure of the job does
		// not mean zero work was done.
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// Health reports service and database liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
