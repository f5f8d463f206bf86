package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/config"
	"github.com/RomanNihal/HackTheAI-FInal/internal/models"
	"github.com/RomanNihal/HackTheAI-FInal/internal/repository"
	"github.com/RomanNihal/HackTheAI-FInal/internal/service"
	"github.com/RomanNihal/HackTheAI-FInal/internal/triage_client"
)

const hardwareHigh = `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"{\\\"priority\\\":\\\"High\\\"}\"}"}}}`

func setupServer(t *testing.T, triageStatus int) http.Handler {
	t.Helper()

	triageAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(triageStatus)
		if triageStatus == http.StatusOK {
			_, _ = io.WriteString(w, hardwareHigh)
		}
	}))
	t.Cleanup(triageAPI.Close)

	logger := zap.NewNop()
	db, err := repository.NewSQLiteDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))

	userRepo := repository.NewUserRepository(db, logger)
	ticketRepo := repository.NewTicketRepository(db, logger)
	client := triage_client.NewClient(triageAPI.URL, 2*time.Second, logger)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", MaxImageBytes: 1 << 20},
		Log:    config.LogConfig{Development: true},
	}
	srv := NewServer(cfg, Dependencies{
		DB:      db,
		Users:   service.NewUserService(userRepo, logger),
		Tickets: service.NewTicketService(userRepo, ticketRepo, client, nil, nil, logger),
	}, logger)
	return srv.Handler()
}

func call(t *testing.T, h http.Handler, req *http.Request, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func submitRequest(t *testing.T, userID, text string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("user_id", userID))
	require.NoError(t, mw.WriteField("ticket_text", text))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit-ticket", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestTicketLifecycle(t *testing.T) {
	h := setupServer(t, http.StatusOK)

	var user models.User
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"name":"Ada","email":"ada@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, call(t, h, req, &user))
	require.NotZero(t, user.ID)

	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusCreated, call(t, h, submitRequest(t, "1", "Laptop fan is grinding"), &created))
	assert.Equal(t, models.StatusNew, created.Status)

	var tickets []models.TicketSummary
	require.Equal(t, http.StatusOK, call(t, h, httptest.NewRequest(http.MethodGet, "/tickets", nil), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, created.ID, tickets[0].ID)
	assert.Equal(t, "Hardware", *tickets[0].Category)
	assert.Equal(t, "High", *tickets[0].Priority)
	assert.Equal(t, "ada@example.com", tickets[0].UserEmail)

	var updated map[string]any
	req = httptest.NewRequest(http.MethodPut, "/tickets/1/status", strings.NewReader(`{"status":"Closed"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, call(t, h, req, &updated))
	assert.Equal(t, "Closed", updated["new_status"])

	var stats models.TicketStats
	require.Equal(t, http.StatusOK, call(t, h, httptest.NewRequest(http.MethodGet, "/stats/last-hour", nil), &stats))
	assert.Equal(t, 1, stats.RecordedLastHour)
	assert.Equal(t, 1, stats.SolvedLastHour)
}

func TestSubmitTicket_UnknownUser(t *testing.T) {
	h := setupServer(t, http.StatusOK)

	assert.Equal(t, http.StatusNotFound, call(t, h, submitRequest(t, "99", "help"), nil))

	var tickets []models.TicketSummary
	require.Equal(t, http.StatusOK, call(t, h, httptest.NewRequest(http.MethodGet, "/tickets", nil), &tickets))
	assert.Empty(t, tickets)
	assert.NotNil(t, tickets)
}

func TestSubmitTicket_TriageDown(t *testing.T) {
	h := setupServer(t, http.StatusServiceUnavailable)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"name":"Ada","email":"ada@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, call(t, h, req, nil))

	assert.Equal(t, http.StatusBadGateway, call(t, h, submitRequest(t, "1", "help"), nil))
}

func TestHealthAndCORS(t *testing.T) {
	h := setupServer(t, http.StatusOK)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
