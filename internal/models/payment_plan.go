package models

import "time"

// Payment plan statuses. Only active plans are eligible for installment
// transitions; the job treats the status purely as a filter.
const (
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
)

// PaymentPlan represents a financial agreement consisting of installments
type PaymentPlan struct {
	ID        string    `json:"id"`
	AgencyID  string    `json:"agency_id"`
	StudentID string    `json:"student_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
