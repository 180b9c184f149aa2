// ABOUTME: Tests for the webhook handler over a real dialogue stack
// ABOUTME: Covers auth, filtering, dedupe, command routing, and the in-flight guard

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/payday-bot/internal/config"
	"github.com/paydesk/payday-bot/internal/dialog"
	"github.com/paydesk/payday-bot/internal/payroll"
	"github.com/paydesk/payday-bot/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubSource feeds canned rows into the payroll service.
type stubSource struct {
	rows [][]any
}

func (s *stubSource) Values(ctx context.Context) ([][]any, error) {
	return s.rows, nil
}

// fakeSender records outbound messages.
type fakeSender struct {
	mu       sync.Mutex
	messages []string
	chats    []int64
	typing   int
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeSender) SendTyping(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

// newTestHandler builds a handler over a real machine, memory store, and
// payroll service reading the given rows.
func newTestHandler(t *testing.T, rows [][]any, cfg config.TelegramConfig) (*Handler, *fakeSender) {
	t.Helper()

	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	lookup := payroll.NewService(&stubSource{rows: rows}, testLogger())
	machine := dialog.NewMachine(store, lookup, testLogger())

	sender := &fakeSender{}
	h := NewHandler(machine, sender, cfg, testLogger())
	t.Cleanup(h.Close)
	return h, sender
}

// updateBody marshals a text-message update the way the Bot API delivers it,
// including the bot_command entity for slash commands.
func updateBody(t *testing.T, updateID int, userID int64, username, text string) []byte {
	t.Helper()

	msg := &tgbotapi.Message{
		MessageID: updateID,
		From:      &tgbotapi.User{ID: userID, UserName: username},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i != -1 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}

	body, err := json.Marshal(tgbotapi.Update{UpdateID: updateID, Message: msg})
	require.NoError(t, err)
	return body
}

func post(h http.Handler, secret string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_SecretRequired(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{WebhookSecret: "hook-secret"})

	body := updateBody(t, 1, 42, "alice", "/start")

	// Missing secret
	rec := post(h, "", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, sender.count(), "nothing may be processed without the secret")

	// Wrong secret
	rec = post(h, "wrong", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, sender.count())

	// Correct secret
	rec = post(h, "hook-secret", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sender.count())
}

func TestWebhook_NoSecretConfigured(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	rec := post(h, "", updateBody(t, 1, 42, "alice", "/start"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sender.count())
}

func TestWebhook_MalformedBody(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	rec := post(h, "", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, sender.count())
}

func TestWebhook_DuplicateUpdateDropped(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	body := updateBody(t, 77, 42, "alice", "/start")

	rec := post(h, "", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Redelivery of the same update ID
	rec = post(h, "", body)
	assert.Equal(t, http.StatusOK, rec.Code, "redeliveries are acknowledged")
	assert.Equal(t, 1, sender.count(), "redelivered update must not be processed twice")
}

func TestWebhook_NonMessageUpdateIgnored(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	rec := post(h, "", []byte(`{"update_id": 5}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, sender.count())
}

func TestWebhook_NonTextMessageIgnored(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	// A photo message: sender present, no text
	body, err := json.Marshal(tgbotapi.Update{
		UpdateID: 6,
		Message: &tgbotapi.Message{
			MessageID: 6,
			From:      &tgbotapi.User{ID: 42, UserName: "alice"},
			Chat:      &tgbotapi.Chat{ID: 42},
		},
	})
	require.NoError(t, err)

	rec := post(h, "", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, sender.count())
}

func TestWebhook_AllowedUsersFilter(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{
		AllowedUsers: []string{"@Alice", "bob"},
	})

	// Not on the list: silently dropped, still 200
	rec := post(h, "", updateBody(t, 1, 99, "mallory", "/start"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, sender.count())

	// Listed with marker and different case
	rec = post(h, "", updateBody(t, 2, 42, "alice", "/start"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sender.count())

	// Listed bare
	rec = post(h, "", updateBody(t, 3, 43, "bob", "/start"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, sender.count())
}

func TestWebhook_HelpCommand(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	post(h, "", updateBody(t, 1, 42, "alice", "/help"))
	assert.Equal(t, HelpReply, sender.last())
}

func TestWebhook_UnknownCommand(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	post(h, "", updateBody(t, 1, 42, "alice", "/weather"))
	assert.Equal(t, UnknownCommandReply, sender.last())
}

func TestWebhook_TypingActionSent(t *testing.T) {
	h, sender := newTestHandler(t, nil, config.TelegramConfig{})

	post(h, "", updateBody(t, 1, 42, "alice", "/start"))
	assert.Equal(t, 1, sender.typing)
}

func TestWebhook_FullDialogue(t *testing.T) {
	rows := [][]any{
		{"", "", "emp001", "01.01.2023", "@alice", "5000"},
	}
	h, sender := newTestHandler(t, rows, config.TelegramConfig{})

	post(h, "", updateBody(t, 1, 42, "alice", "/start"))
	assert.Equal(t, dialog.ReplyAskDate, sender.last())

	post(h, "", updateBody(t, 2, 42, "alice", "01.01.2023"))
	assert.Equal(t, dialog.ReplyAskIdentifier, sender.last())

	post(h, "", updateBody(t, 3, 42, "alice", "emp001"))
	assert.Contains(t, sender.last(), "5000")

	// Dialogue is spent; the next message needs a fresh /start
	post(h, "", updateBody(t, 4, 42, "alice", "emp001"))
	assert.Equal(t, dialog.ReplyNoSession, sender.last())
}

func TestWebhook_HandleMismatch(t *testing.T) {
	rows := [][]any{
		{"", "", "emp001", "01.01.2023", "@alice", "5000"},
	}
	h, sender := newTestHandler(t, rows, config.TelegramConfig{})

	post(h, "", updateBody(t, 1, 7, "bob", "/start"))
	post(h, "", updateBody(t, 2, 7, "bob", "01.01.2023"))
	post(h, "", updateBody(t, 3, 7, "bob", "emp001"))

	assert.Equal(t, dialog.ReplyHandleMismatch, sender.last())
	assert.NotContains(t, sender.last(), "5000")
}

func TestWebhook_NotFound(t *testing.T) {
	rows := [][]any{
		{"", "", "emp001", "01.01.2023", "@alice", "5000"},
	}
	h, sender := newTestHandler(t, rows, config.TelegramConfig{})

	post(h, "", updateBody(t, 1, 42, "alice", "/start"))
	post(h, "", updateBody(t, 2, 42, "alice", "02.02.2024"))
	post(h, "", updateBody(t, 3, 42, "alice", "emp404"))

	assert.Equal(t, dialog.ReplyNotFound, sender.last())
}

// blockingDialogue parks the first caller until released and counts calls.
type blockingDialogue struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newBlockingDialogue() *blockingDialogue {
	return &blockingDialogue{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingDialogue) Start(ctx context.Context, userID int64) (string, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return "done", nil
}

func (b *blockingDialogue) Message(ctx context.Context, userID int64, username, text string) (string, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return "done", nil
}

func TestWebhook_InflightGuardDropsConcurrentUpdate(t *testing.T) {
	bd := newBlockingDialogue()
	sender := &fakeSender{}
	h := NewHandler(bd, sender, config.TelegramConfig{}, testLogger())
	defer h.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		post(h, "", updateBody(t, 1, 42, "alice", "/start"))
	}()

	// Wait until the first update is inside the dialogue
	<-bd.entered

	// Second update for the same user while the first is mid-flight
	rec := post(h, "", updateBody(t, 2, 42, "alice", "hello"))
	assert.Equal(t, http.StatusOK, rec.Code, "dropped update is still acknowledged")
	assert.Equal(t, int32(1), bd.calls.Load(), "concurrent update for the same user must be dropped")

	close(bd.release)
	wg.Wait()

	// The guard clears once processing finishes
	rec = post(h, "", updateBody(t, 3, 42, "alice", "hello again"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), bd.calls.Load())
}

func TestWebhook_DifferentUsersNotSerialized(t *testing.T) {
	rows := [][]any{
		{"", "", "emp001", "01.01.2023", "", "5000"},
	}
	h, sender := newTestHandler(t, rows, config.TelegramConfig{})

	// Interleaved dialogues for two users stay independent
	post(h, "", updateBody(t, 1, 1, "alice", "/start"))
	post(h, "", updateBody(t, 2, 2, "bob", "/start"))
	post(h, "", updateBody(t, 3, 1, "alice", "01.01.2023"))
	post(h, "", updateBody(t, 4, 2, "bob", "31.02.2024"))

	require.Equal(t, 4, sender.count())
	assert.Equal(t, dialog.ReplyDateInvalid, sender.last(), "bob sees his own rejection")
	assert.Equal(t, dialog.ReplyAskIdentifier, sender.messages[2], "alice advanced independently")
}
