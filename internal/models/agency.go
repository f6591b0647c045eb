package models

import "time"

// Agency represents a tenant of the platform. Every data access in the
// service is scoped by AgencyID; the job only reads agency settings.
type Agency struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Timezone             string    `json:"timezone"`                // IANA zone name, e.g. "Australia/Brisbane"
	OverdueCutoffTime    string    `json:"overdue_cutoff_time"`     // local time of day, "15:04" or "15:04:05"
	DueSoonThresholdDays int       `json:"due_soon_threshold_days"` // 1-30, defaults applied at provisioning
	NotificationEmail    string    `json:"notification_email"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
