package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edupay/agency-service/internal/models"
)

// dateFormat is how calendar dates are bound into queries; due_date is a
// DATE column holding agency-local calendar dates.
const dateFormat = "2006-01-02"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListAgencies returns every agency with its job-relevant settings
func (r *Repository) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	query := `
		SELECT id, name, timezone, overdue_cutoff_time, due_soon_threshold_days, notification_email
		FROM agencies
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}
	defer rows.Close()

	var agencies []models.Agency
	for rows.Next() {
		var a models.Agency
		var notificationEmail sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &a.Timezone, &a.OverdueCutoffTime,
			&a.DueSoonThresholdDays, &notificationEmail); err != nil {
			return nil, fmt.Errorf("failed to scan agency: %w", err)
		}
		if notificationEmail.Valid {
			a.NotificationEmail = notificationEmail.String
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agencies: %w", err)
	}
	return agencies, nil
}

// MarkOverdueInstallments flips pending installments on the agency's
// active plans with due_date on or before cutoffDate to overdue, in a
// single conditional batch update. The status = 'pending' predicate is
// re-checked at write time, so overlapping runs cannot double-count and
// paid/cancelled/overdue rows are never touched.
func (r *Repository) MarkOverdueInstallments(ctx context.Context, agencyID string, cutoffDate time.Time) (int64, error) {
	if agencyID == "" {
		return 0, fmt.Errorf("agency_id is required")
	}

	query := `
		UPDATE installments i
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		FROM payment_plans p
		WHERE i.payment_plan_id = p.id
		  AND p.agency_id = $2
		  AND p.status = $3
		  AND i.status = $4
		  AND i.due_date <= $5`
	result, err := r.db.ExecContext(ctx, query,
		models.InstallmentStatusOverdue, agencyID, models.PlanStatusActive,
		models.InstallmentStatusPending, cutoffDate.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue installments: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return updated, nil
}

// CountDueSoonInstallments counts the agency's pending installments on
// active plans due after cutoffDate and within the agency's due-soon
// window. Read-only; used for the per-agency metadata and digest email.
func (r *Repository) CountDueSoonInstallments(ctx context.Context, agencyID string, cutoffDate time.Time, thresholdDays int) (int64, error) {
	if agencyID == "" {
		return 0, fmt.Errorf("agency_id is required")
	}

	windowEnd := cutoffDate.AddDate(0, 0, thresholdDays)
	query := `
		SELECT COUNT(*)
		FROM installments i
		JOIN payment_plans p ON i.payment_plan_id = p.id
		WHERE p.agency_id = $1
		  AND p.status = $2
		  AND i.status = $3
		  AND i.due_date > $4
		  AND i.due_date <= $5`
	var count int64
	err := r.db.QueryRowContext(ctx, query, agencyID, models.PlanStatusActive,
		models.InstallmentStatusPending, cutoffDate.Format(dateFormat), windowEnd.Format(dateFormat)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count due-soon installments: %w", err)
	}
	return count, nil
}

// CreateJobExecution inserts a new execution log entry with status running
func (r *Repository) CreateJobExecution(ctx context.Context, entry *models.JobExecution) error {
	query := `
		INSERT INTO job_executions (id, job_name, started_at, status)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.JobName, entry.StartedAt, entry.Status)
	if err != nil {
		return fmt.Errorf("failed to create job execution: %w", err)
	}
	return nil
}

// CompleteJobExecution finalizes an execution log entry with its terminal
// status, aggregate counts and per-agency metadata
func (r *Repository) CompleteJobExecution(ctx context.Context, entry *models.JobExecution) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	query := `
		UPDATE job_executions
		SET completed_at = $2, status = $3, records_updated = $4, error_message = $5, metadata = $6
		WHERE id = $1`
	var errMsg sql.NullString
	if entry.ErrorMessage != "" {
		errMsg = sql.NullString{String: entry.ErrorMessage, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, entry.ID, entry.CompletedAt, entry.Status,
		entry.RecordsUpdated, errMsg, metadata)
	if err != nil {
		return fmt.Errorf("failed to complete job execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job execution not found: id=%s", entry.ID)
	}
	return nil
}

// Ping verifies database connectivity for the health endpoint
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
