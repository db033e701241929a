package model

import "time"

type Appointment struct {
	ID       string
	UserID   string
	Date     string // 2006-01-02
	Time     string // empty when no time of day was recorded
	Type     string
	Doctor   string
	Location string

	// nil means no reminder was requested
	ReminderMinutesBefore *int
	ReminderSentAt        *time.Time

	CreatedAt time.Time
}

type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	UserID    string    `json:"user_id"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}

// DueReminder is computed per run and never persisted.
type DueReminder struct {
	AppointmentID string
	UserID        string
	Text          string
	DueAt         time.Time
}

// Notification is the JSON payload handed to the push client.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

const (
	OutcomeDelivered = "delivered"
	OutcomeGone      = "gone"
	OutcomeFailed    = "failed"
)

// Delivery is one push attempt, kept as an audit trail next to the sent marker.
type Delivery struct {
	ID             string
	UserID         string
	AppointmentIDs []string
	Endpoint       string
	Outcome        string
	StatusCode     int
	CreatedAt      time.Time
}
