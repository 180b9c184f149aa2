// Package session persists per-user dialogue state between webhook deliveries.
//
// # Architecture
//
// The bot process is stateless: consecutive messages of the same dialogue can
// be handled by different instances, so the session store must live outside
// the process. The package exposes a small Store interface and three drivers:
//
//   - RedisStore: shared and durable, the production driver
//   - SQLiteStore: durable but process-local, for single-instance deployments
//   - MemoryStore: neither, for development and tests
//
// New() selects a driver from config.SessionConfig.
//
// # Data Model
//
// A Session records where a user is in the two-step payout dialogue:
//
//   - StageAwaitingDate: the bot asked for a payment date
//   - StageAwaitingIdentifier: a date was accepted, waiting for an identifier
//
// The accepted date travels inside the session so the identifier step can
// complete the lookup without re-asking.
//
// # Semantics
//
// Get returns (nil, nil) when no session exists; callers treat absence as a
// normal state, not an error. Set upserts and stamps timestamps. Sessions
// carry a TTL (24h by default) so abandoned dialogues expire on their own;
// the redis driver refreshes the TTL on read, the sqlite driver removes
// expired rows lazily.
//
// All methods accept context.Context for cancellation support.
package session
