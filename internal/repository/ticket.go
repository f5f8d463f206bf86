package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/models"
)

type TicketRepository interface {
	CreateWithAnalysis(ctx context.Context, ticket *models.SupportTicket, analysis *models.AIAnalysis) error
	GetAllTickets(ctx context.Context) ([]*models.TicketSummary, error)
	GetTicketByID(ctx context.Context, id int64) (*models.TicketSummary, error)
	UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (*models.SupportTicket, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountInStatusSince(ctx context.Context, status string, since time.Time) (int, error)
}

type ticketRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTicketRepository(db *sqlx.DB, logger *zap.Logger) TicketRepository {
	return &ticketRepository{db: db, logger: logger}
}

const ticketSummarySelect = `
	SELECT
		st.id,
		st.description,
		st.image_url,
		st.status,
		st.created_at,
		u.id AS user_id,
		u.name AS user_name,
		u.email AS user_email,
		ai.priority,
		ai.category,
		ai.confidence
	FROM support_tickets st
	JOIN users u ON st.user_id = u.id
	LEFT JOIN ai_analysis ai ON st.id = ai.ticket_id
`

// CreateWithAnalysis writes the ticket and its analysis in one transaction; on any error neither row
// is kept. IDs are filled in on success.
func (r *ticketRepository) CreateWithAnalysis(ctx context.Context, ticket *models.SupportTicket, analysis *models.AIAnalysis) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to roll back ticket transaction", zap.Error(rbErr))
			}
		}
	}()

	ticketQuery := tx.Rebind(`INSERT INTO support_tickets (user_id, description, image_url, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	if err = tx.QueryRowxContext(ctx, ticketQuery, ticket.UserID, ticket.Description, ticket.ImageURL,
		ticket.Status, ticket.CreatedAt, ticket.UpdatedAt).Scan(&ticket.ID); err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	analysis.TicketID = ticket.ID
	analysisQuery := tx.Rebind(`INSERT INTO ai_analysis (ticket_id, priority, category, confidence)
	          VALUES (?, ?, ?, ?) RETURNING id`)
	if err = tx.QueryRowxContext(ctx, analysisQuery, analysis.TicketID, analysis.Priority,
		analysis.Category, analysis.Confidence).Scan(&analysis.ID); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ticket: %w", err)
	}
	return nil
}

// GetAllTickets returns every ticket, most recent first.
func (r *ticketRepository) GetAllTickets(ctx context.Context) ([]*models.TicketSummary, error) {
	tickets := []*models.TicketSummary{}
	query := ticketSummarySelect + ` ORDER BY st.created_at DESC, st.id DESC`
	if err := r.db.SelectContext(ctx, &tickets, query); err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	return tickets, nil
}

func (r *ticketRepository) GetTicketByID(ctx context.Context, id int64) (*models.TicketSummary, error) {
	var ticket models.TicketSummary
	query := r.db.Rebind(ticketSummarySelect + ` WHERE st.id = ?`)
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &ticket, nil
}

// UpdateStatus overwrites the status and returns the updated row, or ErrNotFound.
func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (_ *models.SupportTicket, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updateQuery := tx.Rebind(`UPDATE support_tickets SET status = ?, updated_at = ? WHERE id = ?`)
	result, err := tx.ExecContext(ctx, updateQuery, status, updatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update ticket status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		err = ErrNotFound
		return nil, err
	}

	var ticket models.SupportTicket
	selectQuery := tx.Rebind(`SELECT id, user_id, description, image_url, status, created_at, updated_at
	          FROM support_tickets WHERE id = ?`)
	if err = tx.GetContext(ctx, &ticket, selectQuery, id); err != nil {
		return nil, fmt.Errorf("failed to reload ticket: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(id) FROM support_tickets WHERE created_at >= ?`)
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return count, nil
}

// CountInStatusSince counts tickets currently in status whose last change is at or after since.
func (r *ticketRepository) CountInStatusSince(ctx context.Context, status string, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(id) FROM support_tickets WHERE status = ? AND updated_at >= ?`)
	if err := r.db.GetContext(ctx, &count, query, status, since); err != nil {
		return 0, fmt.Errorf("failed to count tickets by status: %w", err)
	}
	return count, nil
}
