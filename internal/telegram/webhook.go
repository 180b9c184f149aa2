// ABOUTME: Webhook handler turning Telegram update deliveries into dialogue steps
// ABOUTME: Authenticates, dedupes, filters, and serializes per-user processing

package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/paydesk/payday-bot/internal/config"
	"github.com/paydesk/payday-bot/internal/dedupe"
	"github.com/paydesk/payday-bot/internal/dialog"
)

// secretTokenHeader carries the shared webhook secret on every delivery.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dedupe window for redelivered updates. Telegram retries for minutes, not
// hours, so a short TTL with a generous cap covers it.
const (
	dedupeTTL  = 10 * time.Minute
	dedupeSize = 100_000
)

// Replies owned by the transport surface rather than the dialogue.
const (
	// HelpReply describes the bot's commands and flow.
	HelpReply = "I look up payouts from the payroll sheet.\n\n" +
		"/start - begin a lookup\n" +
		"/help - this message\n\n" +
		"I'll ask for the payment date, then your employee ID."

	// UnknownCommandReply is sent for commands the bot does not know.
	UnknownCommandReply = "I don't know that command. Send /start to begin a payout lookup."
)

// Dialogue advances a user's conversation and produces the reply to send.
// *dialog.Machine satisfies this.
type Dialogue interface {
	Start(ctx context.Context, userID int64) (string, error)
	Message(ctx context.Context, userID int64, username, text string) (string, error)
}

// Handler processes webhook deliveries from the Bot API.
//
// Request handling is synchronous: the update is fully processed (including
// the outbound reply) before the 200 goes back, which is what keeps a
// per-request execution model honest. After authentication and parsing the
// response is always 200; a non-2xx would make Telegram redeliver the
// update and double-drive the user's dialogue.
type Handler struct {
	dialogue     Dialogue
	sender       Sender
	secret       string
	allowedUsers []string
	seen         *dedupe.Cache
	logger       *slog.Logger

	// Track users with an update mid-flight so a second concurrent update
	// cannot race the same session
	inflight sync.Map
}

// NewHandler creates a webhook handler wired to the dialogue and sender.
func NewHandler(dialogue Dialogue, sender Sender, cfg config.TelegramConfig, logger *slog.Logger) *Handler {
	return &Handler{
		dialogue:     dialogue,
		sender:       sender,
		secret:       cfg.WebhookSecret,
		allowedUsers: cfg.AllowedUsers,
		seen:         dedupe.New(dedupeTTL, dedupeSize),
		logger:       logger.With("component", "webhook"),
	}
}

// Close releases the dedupe cache.
func (h *Handler) Close() {
	h.seen.Close()
}

// ServeHTTP implements http.Handler for the webhook route.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook delivery with bad secret", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("malformed webhook body", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.handleUpdate(r.Context(), &update)
	w.WriteHeader(http.StatusOK)
}

// handleUpdate filters and routes one update. Every return path is final:
// whatever happened here, the delivery is acknowledged.
func (h *Handler) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	updateID := int64(update.UpdateID)

	if h.seen.SeenOrMark(updateID) {
		h.logger.Debug("dropping redelivered update", "update_id", updateID)
		return
	}

	msg := update.Message
	if msg == nil {
		// Edits, callback queries, channel posts: nothing dialogue-shaped
		h.logger.Debug("ignoring non-message update", "update_id", updateID)
		return
	}
	if msg.From == nil {
		h.logger.Debug("ignoring message without sender", "update_id", updateID)
		return
	}

	userID := msg.From.ID
	username := msg.From.UserName

	if !h.isUserAllowed(username) {
		h.logger.Debug("ignoring message from non-allowed user",
			"update_id", updateID, "username", username)
		return
	}

	if msg.Text == "" {
		h.logger.Debug("ignoring non-text message", "update_id", updateID, "user_id", userID)
		return
	}

	// One update per user at a time; a concurrent second one is dropped
	if _, loaded := h.inflight.LoadOrStore(userID, true); loaded {
		h.logger.Debug("already processing an update for user, dropping",
			"update_id", updateID, "user_id", userID)
		return
	}
	defer h.inflight.Delete(userID)

	// processing_id is unique per delivery; update_id repeats on redelivery
	log := h.logger.With(
		"processing_id", uuid.New().String(),
		"update_id", updateID,
		"user_id", userID)

	log.Info("received message", "text", truncate(msg.Text, 50))

	if err := h.sender.SendTyping(ctx, msg.Chat.ID); err != nil {
		log.Debug("failed to send typing action", "error", err)
	}

	reply, err := h.routeMessage(ctx, userID, username, msg)
	if err != nil {
		log.Error("dialogue processing failed", "error", err)
	}

	if reply == "" {
		return
	}
	if err := h.sender.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		log.Error("failed to send reply", "error", err)
	}
}

// routeMessage dispatches commands and hands plain text to the dialogue.
func (h *Handler) routeMessage(ctx context.Context, userID int64, username string, msg *tgbotapi.Message) (string, error) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return h.dialogue.Start(ctx, userID)
		case "help":
			return HelpReply, nil
		default:
			return UnknownCommandReply, nil
		}
	}

	return h.dialogue.Message(ctx, userID, username, msg.Text)
}

// isUserAllowed checks the username against the allow list.
func (h *Handler) isUserAllowed(username string) bool {
	if len(h.allowedUsers) == 0 {
		return true // Allow all if no filter
	}

	for _, allowed := range h.allowedUsers {
		if strings.EqualFold(strings.TrimPrefix(allowed, "@"), username) {
			return true
		}
	}
	return false
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

var _ Dialogue = (*dialog.Machine)(nil)
