// Package config handles configuration loading for payday-bot.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PAYDAY_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/payday/bot.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	telegram:
//	  token: "${PAYDAY_TELEGRAM_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  ttl: "24h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # Webhook and health endpoints
//
// Telegram:
//
//	telegram:
//	  token: "${PAYDAY_TELEGRAM_TOKEN}"     # Required
//	  webhook_url: "https://bot.example.com/telegram/webhook"
//	  webhook_secret: "${PAYDAY_WEBHOOK_SECRET}"
//	  allowed_users: []                     # Empty list allows everyone
//
// Session store:
//
//	session:
//	  driver: "redis"   # redis, sqlite, memory
//	  ttl: "24h"
//	  redis:
//	    addr: "localhost:6379"
//	    password: "${PAYDAY_REDIS_PASSWORD}"
//	    db: 0
//	  sqlite:
//	    path: "/var/lib/payday/sessions.db"
//
// Payroll sheet:
//
//	sheets:
//	  spreadsheet_id: "1AbCdEfGh"
//	  range: "Payouts!A2:F"
//	  credentials_json: "${PAYDAY_SHEETS_CREDENTIALS}"
//	  credentials_file: "service-account.json"  # development fallback
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Telegram token presence (startup-fatal)
//   - Session driver selection and driver settings
//   - Duration format validity
//   - Production rules (durable store, sheets credentials)
//
// The spreadsheet ID is not validated at startup; a missing ID surfaces as a
// per-request failure reply instead.
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/payday/bot.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
