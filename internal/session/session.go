// ABOUTME: Session types and the Store interface for dialogue state persistence
// ABOUTME: Provides a driver factory selecting redis, sqlite, or memory backends

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paydesk/payday-bot/internal/config"
)

// ErrInvalidDriver is returned when the configured driver name is unknown.
var ErrInvalidDriver = errors.New("invalid session driver")

// Stage identifies which dialogue step a user is on.
type Stage string

const (
	// StageAwaitingDate means the bot asked for a payment date and is
	// waiting for the user's next message.
	StageAwaitingDate Stage = "awaiting_date"

	// StageAwaitingIdentifier means a date was accepted and the bot is
	// waiting for an employee identifier.
	StageAwaitingIdentifier Stage = "awaiting_identifier"
)

// Valid reports whether the stage is one of the known dialogue steps.
func (s Stage) Valid() bool {
	return s == StageAwaitingDate || s == StageAwaitingIdentifier
}

// Session is the per-user dialogue state. It lives in the store between
// webhook deliveries; each process handling an update reads it fresh.
type Session struct {
	UserID    int64     `json:"user_id"`
	Stage     Stage     `json:"stage"`
	Date      string    `json:"date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists dialogue sessions keyed by chat user ID.
//
// Get returns (nil, nil) when no session exists; absence is not an error.
// Set upserts the session and stamps CreatedAt/UpdatedAt. Delete is a no-op
// for a missing session.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Set(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID int64) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

// New creates a session store for the configured driver.
//
// The redis driver is the production choice: state must live outside the
// process because consecutive updates of one dialogue can land on different
// instances. The sqlite driver suits single-instance deployments; memory is
// for development and tests only.
func New(cfg config.SessionConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(client, cfg.TTL), nil

	case config.DriverSQLite:
		return NewSQLiteStore(cfg.SQLite.Path, cfg.TTL)

	case config.DriverMemory:
		return NewMemoryStore(cfg.TTL), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, cfg.Driver)
	}
}
