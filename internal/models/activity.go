package models

import "time"

// ActivityType enumerates notable domain events shown on the dashboard.
type ActivityType string

const (
	ActivityRegistration    ActivityType = "registration"
	ActivityLessonCompleted ActivityType = "lesson_completed"
	ActivityPaymentReceived ActivityType = "payment_received"
	ActivityMpesaConfirmed  ActivityType = "mpesa_confirmed"
)

// Activity is an append-only feed entry; the consumer-facing feed shows
// the newest ten.
type Activity struct {
	ID          string       `db:"id" json:"id"`
	Type        ActivityType `db:"type" json:"type"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Icon        string       `db:"icon" json:"icon"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}
