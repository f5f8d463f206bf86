package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/config"
	"github.com/RomanNihal/HackTheAI-FInal/internal/models"
)

const maxDescriptionRunes = 300

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a short message to the support chat for every ingested ticket.
type TelegramNotifier struct {
	bot    sender
	chatID int64
	logger *zap.Logger
}

// NewTelegramNotifier returns nil, nil when the notifier is disabled.
func NewTelegramNotifier(cfg config.NotifierConfig, logger *zap.Logger) (*TelegramNotifier, error) {
	if !cfg.Enabled || cfg.TelegramBotToken == "" {
		logger.Info("Telegram notifier is disabled (notifier.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &TelegramNotifier{bot: botAPI, chatID: cfg.ChatID, logger: logger}, nil
}

// NotifyTicketCreated sends the notification. The ticket is already committed, so callers only log
// the returned error.
func (n *TelegramNotifier) NotifyTicketCreated(ctx context.Context, ticket *models.SupportTicket, user *models.User, analysis *models.AIAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, formatTicketMessage(ticket, user, analysis))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send ticket notification: %w", err)
	}

	n.logger.Debug("Ticket notification sent", zap.Int64("ticket_id", ticket.ID), zap.Int64("chat_id", n.chatID))
	return nil
}

func formatTicketMessage(ticket *models.SupportTicket, user *models.User, analysis *models.AIAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New ticket #%d from %s <%s>\n", ticket.ID, user.Name, user.Email)
	fmt.Fprintf(&b, "Priority: %s\nCategory: %s\n", analysis.Priority, analysis.Category)
	if analysis.Confidence != nil {
		fmt.Fprintf(&b, "Confidence: %.0f%%\n", *analysis.Confidence*100)
	}
	if ticket.ImageURL != nil {
		b.WriteString("Image attached\n")
	}

	description := []rune(ticket.Description)
	if len(description) > maxDescriptionRunes {
		description = append(description[:maxDescriptionRunes], '…')
	}
	b.WriteString("\n")
	b.WriteString(string(description))
	return b.String()
}
