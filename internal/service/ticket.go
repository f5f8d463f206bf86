package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/models"
	"github.com/RomanNihal/HackTheAI-FInal/internal/repository"
	"github.com/RomanNihal/HackTheAI-FInal/internal/storage"
	"github.com/RomanNihal/HackTheAI-FInal/internal/triage"
)

const notifyTimeout = 5 * time.Second

// Triager sends a ticket to the external triage service.
type Triager interface {
	Triage(ctx context.Context, text string, image *models.TicketImage) (triage.RawResponse, error)
}

// TicketNotifier is told about every committed ticket.
type TicketNotifier interface {
	NotifyTicketCreated(ctx context.Context, ticket *models.SupportTicket, user *models.User, analysis *models.AIAnalysis) error
}

type SubmitTicketInput struct {
	UserID int64
	Text   string
	Image  *models.TicketImage // optional
}

// TicketService implements ingestion and the ticket query/update operations.
type TicketService struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	triager  Triager
	images   storage.ImageStore // nil: images are forwarded to triage but not kept
	notifier TicketNotifier     // nil: no notifications
	logger   *zap.Logger
	now      func() time.Time
}

// NewTicketService creates the ticket service. images and notifier may be nil.
func NewTicketService(
	users repository.UserRepository,
	tickets repository.TicketRepository,
	triager Triager,
	images storage.ImageStore,
	notifier TicketNotifier,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		users:    users,
		tickets:  tickets,
		triager:  triager,
		images:   images,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitTicket triages the ticket and stores it together with its analysis. Nothing is written
// unless every step succeeds.
func (s *TicketService) SubmitTicket(ctx context.Context, in SubmitTicketInput) (*models.SupportTicket, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: ticket_text is required", ErrInvalidInput)
	}

	user, err := s.users.GetUserByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	raw, err := s.triager.Triage(ctx, text, in.Image)
	if err != nil {
		s.logger.Error("Triage call failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTriageUnavailable, err)
	}

	result, err := triage.Normalize(raw)
	if err != nil {
		s.logger.Error("Failed to normalize triage response",
			zap.Int64("user_id", user.ID),
			zap.ByteString("raw", raw),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTriageNormalization, err)
	}

	s.logger.Info("Ticket triaged",
		zap.Int64("user_id", user.ID),
		zap.String("category", result.Category),
		zap.String("priority", result.Priority))

	var imageKey *string
	if in.Image != nil && s.images != nil {
		key, err := s.images.Save(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store ticket image: %w", err)
		}
		imageKey = &key
	}

	now := s.now()
	ticket := &models.SupportTicket{
		UserID:      user.ID,
		Description: text,
		ImageURL:    imageKey,
		Status:      models.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	analysis := &models.AIAnalysis{
		Priority:   result.Priority,
		Category:   result.Category,
		Confidence: result.Confidence,
	}

	if err := s.tickets.CreateWithAnalysis(ctx, ticket, analysis); err != nil {
		if imageKey != nil {
			if delErr := s.images.Delete(context.WithoutCancel(ctx), *imageKey); delErr != nil {
				s.logger.Warn("Failed to remove image of unsaved ticket", zap.String("key", *imageKey), zap.Error(delErr))
			}
		}
		s.logger.Error("Failed to save ticket", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	s.logger.Info("Ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("user_id", user.ID),
		zap.Bool("has_image", imageKey != nil))

	s.notify(ctx, ticket, user, analysis)

	return ticket, nil
}

func (s *TicketService) notify(ctx context.Context, ticket *models.SupportTicket, user *models.User, analysis *models.AIAnalysis) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyTicketCreated(ctx, ticket, user, analysis); err != nil {
		s.logger.Warn("Failed to send ticket notification", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
}

// ListTickets returns all tickets, most recent first.
func (s *TicketService) ListTickets(ctx context.Context) ([]*models.TicketSummary, error) {
	tickets, err := s.tickets.GetAllTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (s *TicketService) GetTicket(ctx context.Context, id int64) (*models.TicketSummary, error) {
	ticket, err := s.tickets.GetTicketByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// UpdateStatus overwrites the ticket's status. Any non-empty label is accepted.
func (s *TicketService) UpdateStatus(ctx context.Context, id int64, status string) (*models.SupportTicket, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrInvalidStatus
	}

	ticket, err := s.tickets.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to update ticket status: %w", err)
	}

	s.logger.Info("Ticket status updated", zap.Int64("ticket_id", id), zap.String("status", status))
	return ticket, nil
}

// LastHourStats counts tickets recorded, and tickets closed, during the last hour.
func (s *TicketService) LastHourStats(ctx context.Context) (*models.TicketStats, error) {
	since := s.now().Add(-time.Hour)

	recorded, err := s.tickets.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count recorded tickets: %w", err)
	}
	solved, err := s.tickets.CountInStatusSince(ctx, models.StatusClosed, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count solved tickets: %w", err)
	}

	return &models.TicketStats{RecordedLastHour: recorded, SolvedLastHour: solved}, nil
}
