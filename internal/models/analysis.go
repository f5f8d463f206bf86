package models

// AIAnalysis represents the triage result stored in the 'ai_analysis' table.
// One row per ticket, written together with the ticket and never updated.
type AIAnalysis struct {
	ID         int64    `db:"id" json:"id"`
	TicketID   int64    `db:"ticket_id" json:"ticket_id"`
	Priority   string   `db:"priority" json:"priority"`
	Category   string   `db:"category" json:"category"`
	Confidence *float64 `db:"confidence" json:"confidence,omitempty"` // In [0,1] when the service reports it
}
