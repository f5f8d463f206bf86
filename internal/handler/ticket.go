package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/models"
	"github.com/RomanNihal/HackTheAI-FInal/internal/service"
)

type TicketService interface {
	SubmitTicket(ctx context.Context, in service.SubmitTicketInput) (*models.SupportTicket, error)
	ListTickets(ctx context.Context) ([]*models.TicketSummary, error)
	GetTicket(ctx context.Context, id int64) (*models.TicketSummary, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.SupportTicket, error)
	LastHourStats(ctx context.Context) (*models.TicketStats, error)
}

type TicketHandler interface {
	SubmitTicket(c *gin.Context)
	ListTickets(c *gin.Context)
	GetTicket(c *gin.Context)
	UpdateStatus(c *gin.Context)
	LastHourStats(c *gin.Context)
}

type ticketHandler struct {
	tickets       TicketService
	maxImageBytes int64
	logger        *zap.Logger
}

func NewTicketHandler(tickets TicketService, maxImageBytes int64, logger *zap.Logger) TicketHandler {
	return &ticketHandler{tickets: tickets, maxImageBytes: maxImageBytes, logger: logger}
}

// SubmitTicket handles POST /submit-ticket
// Form fields:
// - user_id: registered user (required)
// - ticket_text: problem description (required)
// - ticket_image: screenshot or photo (optional)
func (h *ticketHandler) SubmitTicket(c *gin.Context) {
	userID, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return
	}

	text := c.PostForm("ticket_text")
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_text is required"})
		return
	}

	image, err := h.readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.tickets.SubmitTicket(c.Request.Context(), service.SubmitTicketInput{
		UserID: userID,
		Text:   text,
		Image:  image,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, service.ErrTriageUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Triage service unavailable"})
		case errors.Is(err, service.ErrTriageNormalization):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Triage service returned an unusable response"})
		default:
			h.logger.Error("Failed to submit ticket", zap.Int64("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit ticket"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": ticket.ID, "status": ticket.Status})
}

// readImage returns nil when no ticket_image part was sent.
func (h *ticketHandler) readImage(c *gin.Context) (*models.TicketImage, error) {
	header, err := c.FormFile("ticket_image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid ticket_image: %w", err)
	}
	if header.Size > h.maxImageBytes {
		return nil, fmt.Errorf("ticket_image exceeds %d bytes", h.maxImageBytes)
	}

	data, err := readFormFile(header)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket_image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("ticket_image is empty")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &models.TicketImage{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ListTickets handles GET /tickets
func (h *ticketHandler) ListTickets(c *gin.Context) {
	tickets, err := h.tickets.ListTickets(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list tickets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tickets"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// GetTicket handles GET /tickets/:ticket_id
func (h *ticketHandler) GetTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}

	ticket, err := h.tickets.GetTicket(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		h.logger.Error("Failed to get ticket", zap.Int64("ticket_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// UpdateStatus handles PUT /tickets/:ticket_id/status
func (h *ticketHandler) UpdateStatus(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}

	var input models.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.tickets.UpdateStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		default:
			h.logger.Error("Failed to update ticket status", zap.Int64("ticket_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": ticket.ID, "new_status": ticket.Status})
}

// LastHourStats handles GET /stats/last-hour
func (h *ticketHandler) LastHourStats(c *gin.Context) {
	stats, err := h.tickets.LastHourStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute ticket stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func ticketID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("ticket_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return 0, false
	}
	return id, true
}
