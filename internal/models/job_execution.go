package models

import "time"

// Job execution statuses. A run is created as running and finishes as
// success or failed; a run killed mid-flight stays running, which is the
// stuck-job signal external monitoring alerts on.
const (
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// JobNameOverdueDetection is the job_name recorded for every run of the
// installment overdue-detection job.
const JobNameOverdueDetection = "installment-overdue-detection"

// Transitions holds per-agency transition counts for one run
type Transitions struct {
	PendingToOverdue int64 `json:"pending_to_overdue"`
}

// AgencyResult is the per-agency outcome of one run. Error is empty on
// success; a failed agency still appears in the metadata breakdown.
type AgencyResult struct {
	AgencyID     string      `json:"agency_id"`
	UpdatedCount int64       `json:"updated_count"`
	DueSoonCount int64       `json:"due_soon_count"`
	Transitions  Transitions `json:"transitions"`
	Error        string      `json:"error,omitempty"`
}

// JobMetadata is the metadata payload persisted with an execution log entry
type JobMetadata struct {
	Agencies []AgencyResult `json:"agencies"`
}

// JobExecution represents one audit record of a job run
type JobExecution struct {
	ID             string      `json:"id"`
	JobName        string      `json:"job_name"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at"`
	Status         string      `json:"status"`
	RecordsUpdated int64       `json:"records_updated"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	Metadata       JobMetadata `json:"metadata"`
}
