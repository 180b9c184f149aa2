// ABOUTME: Conversation state machine driving the two-step payout dialogue
// ABOUTME: Owns session transitions; every inbound message yields exactly one reply

package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paydesk/payday-bot/internal/payroll"
	"github.com/paydesk/payday-bot/internal/session"
	"github.com/paydesk/payday-bot/internal/sheets"
)

// Lookup finds the payment record for a normalized date and identifier.
// *payroll.Service satisfies this.
type Lookup interface {
	FetchRecord(ctx context.Context, date, identifier string) (*payroll.Record, error)
}

// Machine advances per-user dialogues. It is the only writer of session
// state; the store is a dumb keyed container underneath it.
//
// Both methods return the reply to send. The error return is for logging
// only: it is non-nil when something internal went wrong, and the reply is
// still valid to send.
type Machine struct {
	sessions session.Store
	lookup   Lookup
	logger   *slog.Logger
}

// NewMachine creates a dialogue machine over the given session store and
// payroll lookup.
func NewMachine(sessions session.Store, lookup Lookup, logger *slog.Logger) *Machine {
	return &Machine{
		sessions: sessions,
		lookup:   lookup,
		logger:   logger.With("component", "dialog"),
	}
}

// Start begins or restarts a dialogue. Valid from any state: whatever was
// in progress is overwritten with a fresh awaiting-date session.
func (m *Machine) Start(ctx context.Context, userID int64) (string, error) {
	sess := &session.Session{
		UserID: userID,
		Stage:  session.StageAwaitingDate,
	}
	if err := m.sessions.Set(ctx, sess); err != nil {
		return ReplyInternalError, fmt.Errorf("creating session: %w", err)
	}

	m.logger.Debug("dialogue started", "user_id", userID)
	return ReplyAskDate, nil
}

// Message handles one ordinary text message and advances the user's
// dialogue a single step.
func (m *Machine) Message(ctx context.Context, userID int64, username, text string) (string, error) {
	sess, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return ReplyInternalError, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		// No dialogue in progress; point at /start and change nothing
		return ReplyNoSession, nil
	}

	switch sess.Stage {
	case session.StageAwaitingDate:
		return m.handleDate(ctx, sess, text)
	case session.StageAwaitingIdentifier:
		return m.handleIdentifier(ctx, sess, username, text)
	default:
		m.deleteSession(ctx, userID)
		return ReplyInternalError, fmt.Errorf("unexpected session stage %q for user %d", sess.Stage, userID)
	}
}

// handleDate validates the date step. Rejections leave the session exactly
// as it was; acceptance stores the canonical date and advances the stage.
func (m *Machine) handleDate(ctx context.Context, sess *session.Session, text string) (string, error) {
	normalized, err := NormalizeDate(text)
	if err != nil {
		if errors.Is(err, ErrDateFormat) {
			return ReplyDateFormat, nil
		}
		return ReplyDateInvalid, nil
	}

	sess.Stage = session.StageAwaitingIdentifier
	sess.Date = normalized
	if err := m.sessions.Set(ctx, sess); err != nil {
		return ReplyInternalError, fmt.Errorf("advancing session: %w", err)
	}

	m.logger.Debug("date accepted", "user_id", sess.UserID, "date", normalized)
	return ReplyAskIdentifier, nil
}

// handleIdentifier runs the lookup and decides what to reveal. The dialogue
// is single-shot: the session is deleted on every branch, success or not.
func (m *Machine) handleIdentifier(ctx context.Context, sess *session.Session, username, text string) (string, error) {
	defer m.deleteSession(ctx, sess.UserID)

	identifier := strings.TrimSpace(text)

	rec, err := m.lookup.FetchRecord(ctx, sess.Date, identifier)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrNotFound):
			return ReplyNotFound, nil
		case errors.Is(err, payroll.ErrUnavailable):
			// Already logged at the source with its cause
			return ReplyUnavailable, nil
		case errors.Is(err, sheets.ErrNotConfigured):
			return ReplyInternalError, nil
		default:
			return ReplyInternalError, fmt.Errorf("fetching record: %w", err)
		}
	}

	// A marked handle on file must belong to the requester. An unmarked or
	// empty handle cell skips the check entirely.
	if rec.HandleMarked() && rec.HandleOwner() != normalizeHandle(username) {
		m.logger.Info("handle mismatch, amount withheld",
			"user_id", sess.UserID,
			"identifier", identifier,
			"date", sess.Date)
		return ReplyHandleMismatch, nil
	}

	if !rec.HasAmount() {
		return ReplyNoAmount, nil
	}

	m.logger.Info("payout revealed",
		"user_id", sess.UserID,
		"identifier", identifier,
		"date", sess.Date)
	return fmt.Sprintf(replyAmountFormat, sess.Date, rec.Amount), nil
}

// deleteSession clears a user's dialogue state, logging a failed delete
// instead of surfacing it: the reply for the branch is already decided.
func (m *Machine) deleteSession(ctx context.Context, userID int64) {
	if err := m.sessions.Delete(ctx, userID); err != nil {
		m.logger.Error("failed to delete session", "user_id", userID, "error", err)
	}
}

// normalizeHandle lowercases a requester handle and drops a leading marker
// so it compares against the stripped on-file handle.
func normalizeHandle(username string) string {
	return strings.ToLower(strings.TrimPrefix(username, payroll.HandleMarker))
}
