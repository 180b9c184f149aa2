// Package bot wires the payday-bot components into a running server.
//
// New builds the full processing chain from configuration:
//
//	session.Store -> dialog.Machine -> telegram.Handler
//	sheets.Client -> payroll.Service ---^
//
// and fronts it with one HTTP server carrying three routes:
//
//   - POST /telegram/webhook: update deliveries from the Bot API
//   - GET  /health: liveness, always 200 while the process runs
//   - GET  /health/ready: readiness, pings the session store
//
// Run blocks until the context is canceled and then shuts the server down
// gracefully. Startup verifies the session store and the bot token; a
// missing spreadsheet configuration is allowed at startup and surfaces as a
// per-request failure reply instead.
package bot
