package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/config"
	"github.com/RomanNihal/HackTheAI-FInal/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func testTicket() (*models.SupportTicket, *models.User, *models.AIAnalysis) {
	confidence := 0.9
	return &models.SupportTicket{ID: 12, Description: "Server room is flooding", Status: models.StatusNew},
		&models.User{ID: 3, Name: "Ada", Email: "ada@example.com"},
		&models.AIAnalysis{Priority: "Critical", Category: "Facilities", Confidence: &confidence}
}

func TestTelegramNotifier_NotifyTicketCreated(t *testing.T) {
	bot := &fakeSender{}
	n := &TelegramNotifier{bot: bot, chatID: -100500, logger: zap.NewNop()}

	ticket, user, analysis := testTicket()
	require.NoError(t, n.NotifyTicketCreated(context.Background(), ticket, user, analysis))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100500), msg.ChatID)
	assert.Contains(t, msg.Text, "New ticket #12 from Ada <ada@example.com>")
	assert.Contains(t, msg.Text, "Priority: Critical")
	assert.Contains(t, msg.Text, "Category: Facilities")
	assert.Contains(t, msg.Text, "Confidence: 90%")
	assert.Contains(t, msg.Text, "Server room is flooding")
}

func TestTelegramNotifier_SendError(t *testing.T) {
	n := &TelegramNotifier{bot: &fakeSender{err: errors.New("chat not found")}, chatID: 1, logger: zap.NewNop()}

	ticket, user, analysis := testTicket()
	err := n.NotifyTicketCreated(context.Background(), ticket, user, analysis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestFormatTicketMessage_TruncatesDescription(t *testing.T) {
	ticket, user, analysis := testTicket()
	analysis.Confidence = nil
	ticket.Description = strings.Repeat("я", maxDescriptionRunes+50)

	text := formatTicketMessage(ticket, user, analysis)

	assert.NotContains(t, text, "Confidence")
	assert.True(t, strings.HasSuffix(text, "…"))
	assert.Contains(t, text, strings.Repeat("я", maxDescriptionRunes))
	assert.NotContains(t, text, strings.Repeat("я", maxDescriptionRunes+1))
}

func TestNewTelegramNotifier_Disabled(t *testing.T) {
	n, err := NewTelegramNotifier(config.NotifierConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, n)
}
