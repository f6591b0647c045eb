package models

import "time"

// Installment statuses. The job owns exactly one edge of the state
// machine: pending -> overdue. Payment and cancellation flows move
// installments out of pending/overdue elsewhere and never backward.
const (
	InstallmentStatusPending   = "pending"
	InstallmentStatusOverdue   = "overdue"
	InstallmentStatusPaid      = "paid"
	InstallmentStatusCancelled = "cancelled"
)

// installmentTransitions lists the valid status transitions of an
// installment across the whole system. Only PendingToOverdue is performed
// by this service.
var installmentTransitions = map[string][]string{
	InstallmentStatusPending: {InstallmentStatusOverdue, InstallmentStatusPaid, InstallmentStatusCancelled},
	InstallmentStatusOverdue: {InstallmentStatusPaid, InstallmentStatusCancelled},
}

// CanTransition reports whether an installment may move from one status
// to another.
func CanTransition(from, to string) bool {
	for _, next := range installmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalForDetection reports whether the overdue-detection job must
// never touch an installment in this status again.
func IsTerminalForDetection(status string) bool {
	return status == InstallmentStatusOverdue ||
		status == InstallmentStatusPaid ||
		status == InstallmentStatusCancelled
}

// Installment represents a single scheduled payment within a payment plan
type Installment struct {
	ID            string    `json:"id"`
	PaymentPlanID string    `json:"payment_plan_id"`
	Status        string    `json:"status"`
	DueDate       time.Time `json:"due_date"` // calendar date, agency-local
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
