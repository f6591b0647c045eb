package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edupay/agency-service/internal/models"
	"github.com/edupay/agency-service/internal/retry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the data access required by the overdue-detection job. Every
// installment operation is explicitly scoped by agency id.
type Store interface {
	ListAgencies(ctx context.Context) ([]models.Agency, error)
	MarkOverdueInstallments(ctx context.Context, agencyID string, cutoffDate time.Time) (int64, error)
	CountDueSoonInstallments(ctx context.Context, agencyID string, cutoffDate time.Time, thresholdDays int) (int64, error)
	CreateJobExecution(ctx context.Context, entry *models.JobExecution) error
	CompleteJobExecution(ctx context.Context, entry *models.JobExecution) error
}

// Mailer sends operational notifications for the job. Implementations are
// best-effort; a mail failure never affects the job outcome.
type Mailer interface {
	SendJobFailureAlert(to, runID, errorMessage string) error
	SendOverdueDigest(to, agencyName string, cutoffDate time.Time, overdueCount, dueSoonCount int64) error
}

// OverdueService runs the installment overdue-detection job: per-agency
// state transitions wrapped in retries, aggregation and audit logging.
type OverdueService struct {
	store         Store
	retry         *retry.Policy
	mailer        Mailer // optional
	opsAlertEmail string
	log           *logrus.Logger
	now           func() time.Time
}

// NewOverdueService initializes a new overdue-detection service
func NewOverdueService(store Store, policy *retry.Policy, mailer Mailer, opsAlertEmail string, log *logrus.Logger) *OverdueService {
	return &OverdueService{
		store:         store,
		retry:         policy,
		mailer:        mailer,
		opsAlertEmail: opsAlertEmail,
		log:           log,
		now:           time.Now,
	}
}

// Run executes one invocation of the job. It creates an execution log
// entry, processes every agency independently (one agency's failure never
// skips the others), finalizes the entry and returns it. A non-nil error
// means the run itself could not proceed; per-agency failures are
// reported through the entry's failed status and metadata instead.
func (s *OverdueService) Run(ctx context.Context) (*models.JobExecution, error) {
	asOf := s.now().UTC()
	entry := &models.JobExecution{
		ID:        uuid.NewString(),
		JobName:   models.JobNameOverdueDetection,
		StartedAt: asOf,
		Status:    models.JobStatusRunning,
	}
	if err := s.store.CreateJobExecution(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to start job execution: %w", err)
	}
	s.log.Infof("Job %s started: run=%s", entry.JobName, entry.ID)

	var agencies []models.Agency
	err := s.retry.Do(ctx, "list agencies", func(ctx context.Context) error {
		var err error
		agencies, err = s.store.ListAgencies(ctx)
		return err
	})
	if err != nil {
		s.finalize(ctx, entry, fmt.Sprintf("failed to list agencies: %v", err))
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}

	var failures []string
	for _, agency := range agencies {
		result := s.processAgency(ctx, agency, asOf)
		entry.Metadata.Agencies = append(entry.Metadata.Agencies, result)
		if result.Error != "" {
			failures = append(failures, fmt.Sprintf("%s: %s", result.AgencyID, result.Error))
			continue
		}
		entry.RecordsUpdated += result.UpdatedCount
	}

	if len(failures) > 0 {
		s.finalize(ctx, entry, fmt.Sprintf("%d of %d agencies failed: %s",
			len(failures), len(agencies), strings.Join(failures, "; ")))
		s.sendFailureAlert(entry)
	} else {
		s.finalize(ctx, entry, "")
	}
	s.log.Infof("Job %s finished: run=%s status=%s records_updated=%d",
		entry.JobName, entry.ID, entry.Status, entry.RecordsUpdated)
	return entry, nil
}

// processAgency runs the state transition engine for one agency at the
// given as-of instant and returns its result. Config errors (bad timezone
// or cutoff time) are permanent and never retried; data-layer calls go
// through the retry policy.
func (s *OverdueService) processAgency(ctx context.Context, agency models.Agency, asOf time.Time) models.AgencyResult {
	result := models.AgencyResult{AgencyID: agency.ID}

	cutoffDate, err := EffectiveCutoffDate(agency.Timezone, agency.OverdueCutoffTime, asOf)
	if err != nil {
		s.log.Errorf("Agency %s has invalid settings: %v", agency.ID, err)
		result.Error = err.Error()
		return result
	}

	var updated int64
	err = s.retry.Do(ctx, fmt.Sprintf("mark overdue installments for agency %s", agency.ID),
		func(ctx context.Context) error {
			var err error
			updated, err = s.store.MarkOverdueInstallments(ctx, agency.ID, cutoffDate)
			return err
		})
	if err != nil {
		s.log.Errorf("Agency %s overdue detection failed: %v", agency.ID, err)
		result.Error = err.Error()
		return result
	}
	result.UpdatedCount = updated
	result.Transitions.PendingToOverdue = updated

	// Supplemental metric; a failure here never fails the agency.
	err = s.retry.Do(ctx, fmt.Sprintf("count due-soon installments for agency %s", agency.ID),
		func(ctx context.Context) error {
			var err error
			result.DueSoonCount, err = s.store.CountDueSoonInstallments(ctx, agency.ID, cutoffDate, agency.DueSoonThresholdDays)
			return err
		})
	if err != nil {
		s.log.Warnf("Agency %s due-soon count failed: %v", agency.ID, err)
		result.DueSoonCount = 0
	}

	s.log.Infof("Agency %s processed: cutoff_date=%s updated=%d due_soon=%d",
		agency.ID, cutoffDate.Format("2006-01-02"), updated, result.DueSoonCount)
	s.sendDigest(agency, result, cutoffDate)
	return result
}

// finalize moves the execution log entry to its terminal status. The
// entry keeps the partial aggregate even when the run failed; a failure
// to persist the completion is logged but does not change the outcome
// reported to the caller.
func (s *OverdueService) finalize(ctx context.Context, entry *models.JobExecution, errorMessage string) {
	completedAt := s.now().UTC()
	entry.CompletedAt = &completedAt
	if errorMessage != "" {
		entry.Status = models.JobStatusFailed
		entry.ErrorMessage = errorMessage
	} else {
		entry.Status = models.JobStatusSuccess
	}
	if err := s.store.CompleteJobExecution(ctx, entry); err != nil {
		s.log.Errorf("Failed to complete job execution %s: %v", entry.ID, err)
	}
}

func (s *OverdueService) sendDigest(agency models.Agency, result models.AgencyResult, cutoffDate time.Time) {
	if s.mailer == nil || agency.NotificationEmail == "" || result.UpdatedCount == 0 {
		return
	}
	if err := s.mailer.SendOverdueDigest(agency.NotificationEmail, agency.Name, cutoffDate,
		result.UpdatedCount, result.DueSoonCount); err != nil {
		s.log.Warnf("Failed to send overdue digest to agency %s: %v", agency.ID, err)
	}
}

func (s *OverdueService) sendFailureAlert(entry *models.JobExecution) {
	if s.mailer == nil || s.opsAlertEmail == "" {
		return
	}
	if err := s.mailer.SendJobFailureAlert(s.opsAlertEmail, entry.ID, entry.ErrorMessage); err != nil {
		s.log.Warnf("Failed to send job failure alert: %v", err)
	}
}

// Ping reports whether the backing store is reachable
func (s *OverdueService) Ping(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
