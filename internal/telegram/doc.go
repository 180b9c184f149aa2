// Package telegram is the chat transport: webhook in, Bot API out.
//
// # Inbound
//
// Handler receives one update per HTTP delivery. The pipeline before any
// dialogue work:
//
//  1. Shared-secret header check (403 on mismatch)
//  2. Body decode (400 on garbage)
//  3. Update-ID dedupe, per instance, best effort
//  4. Drop non-message, senderless, and non-text updates
//  5. Optional allow-list filter on the sender's username
//  6. Per-user in-flight guard: a second concurrent update for the same
//     user is dropped rather than raced against the first one's session
//
// Everything past authentication and parsing answers 200, including
// processing failures; a non-2xx would make Telegram redeliver the update
// and the dialogue would see the same message twice.
//
// Processing is synchronous within the request, matching a
// one-invocation-per-request execution model.
//
// # Outbound
//
// Sender is the narrow outbound surface (replies and the typing action);
// BotClient implements it over the Bot API and also carries the webhook
// registration calls the CLI uses.
package telegram
