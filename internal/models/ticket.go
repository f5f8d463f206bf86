package models

import "time"

// Ticket statuses. Any non-empty label is accepted on update; these are the ones the UI knows.
const (
	StatusNew        = "New"
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

// SupportTicket represents a row in the 'support_tickets' table.
type SupportTicket struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Description string    `db:"description" json:"description"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"` // Object key in the image store
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TicketSummary is a ticket joined with its owner and, when present, its analysis.
type TicketSummary struct {
	ID          int64     `db:"id" json:"id"`
	Description string    `db:"description" json:"description"`
	ImageURL    *string   `db:"image_url" json:"image_url"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UserID      int64     `db:"user_id" json:"user_id"`
	UserName    string    `db:"user_name" json:"user_name"`
	UserEmail   string    `db:"user_email" json:"user_email"`

	// Nullable: LEFT JOIN on ai_analysis
	Priority   *string  `db:"priority" json:"priority"`
	Category   *string  `db:"category" json:"category"`
	Confidence *float64 `db:"confidence" json:"confidence"`
}

// TicketImage is an image attached to a ticket submission.
type TicketImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UpdateStatusInput is the body of PUT /tickets/:id/status
type UpdateStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// TicketStats backs GET /stats/last-hour
type TicketStats struct {
	RecordedLastHour int `json:"recorded_last_hour"`
	SolvedLastHour   int `json:"solved_last_hour"`
}
