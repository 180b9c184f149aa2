// ABOUTME: Entry point for the payday-bot payout lookup bot
// ABOUTME: Serves the Telegram webhook and manages webhook registration

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/paydesk/payday-bot/internal/bot"
	"github.com/paydesk/payday-bot/internal/config"
	"github.com/paydesk/payday-bot/internal/telegram"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                          _                        _             _
 _ __    __ _  _   _   __| |  __ _  _   _         | |__    ___  | |_
| '_ \  / _' || | | | / _' | / _' || | | | _____  | '_ \  / _ \ | __|
| |_) || (_| || |_| || (_| || (_| || |_| ||_____| | |_) || (_) || |_
| .__/  \__,_| \__, | \__,_| \__,_| \__, |        |_.__/  \___/  \__|
|_|            |___/                |___/
`

// getConfigPath returns the path to the bot config file.
// Priority: PAYDAY_CONFIG env var > ./config.yaml (if present) >
// XDG_CONFIG_HOME/payday/bot.yaml > ~/.config/payday/bot.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PAYDAY_CONFIG"); envPath != "" {
		return envPath
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "payday", "bot.yaml")
}

// getDataPath returns the path to the payday data directory.
// Priority: XDG_DATA_HOME/payday > ~/.local/share/payday
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "payday")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: payday-bot <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                    Start the bot server")
		fmt.Println("  init                     Create a new config file interactively")
		fmt.Println("  health                   Check a running instance")
		fmt.Println("  webhook set|delete|info  Manage the Telegram webhook registration")
		os.Exit(1)
	}

	// .env feeds the ${VAR} expansion in the config file
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "webhook":
		err = runWebhook()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Sessions: %s\n", cfg.Session.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Sheet:    ")
	if cfg.Sheets.SpreadsheetID != "" {
		cyan.Println(cfg.Sheets.SpreadsheetID)
	} else {
		yellow.Println("(not configured)")
	}

	fmt.Println()

	logger.Info("starting payday-bot",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"session_driver", cfg.Session.Driver,
	)

	// Create and run the bot
	b, err := bot.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	return b.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// runHealth asks a running instance whether it is ready to serve updates.
func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: status %d (%s)", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

// runWebhook manages the webhook registration on Telegram's side. The Bot
// API has no context support, so these calls run without one.
func runWebhook() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: payday-bot webhook set|delete|info")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	client, err := telegram.NewBotClient(cfg.Telegram.Token, logger)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	switch os.Args[2] {
	case "set":
		url := cfg.Telegram.WebhookURL
		if len(os.Args) > 3 {
			url = os.Args[3]
		}
		if url == "" {
			return fmt.Errorf("no webhook URL: set telegram.webhook_url or pass one as an argument")
		}

		if err := client.SetWebhook(url, cfg.Telegram.WebhookSecret); err != nil {
			return fmt.Errorf("setting webhook: %w", err)
		}
		green.Printf("  ✓ Webhook set: %s\n", url)
		if cfg.Telegram.WebhookSecret == "" {
			yellow.Println("  ! No webhook_secret configured; deliveries are unauthenticated")
		}
		return nil

	case "delete":
		dropPending := false
		for _, arg := range os.Args[3:] {
			if arg == "--drop-pending" {
				dropPending = true
				continue
			}
			return fmt.Errorf("unknown flag: %s", arg)
		}

		if err := client.DeleteWebhook(dropPending); err != nil {
			return fmt.Errorf("deleting webhook: %w", err)
		}
		if dropPending {
			green.Println("  ✓ Webhook deleted (pending updates dropped)")
		} else {
			green.Println("  ✓ Webhook deleted")
		}
		return nil

	case "info":
		info, err := client.WebhookInfo()
		if err != nil {
			return fmt.Errorf("fetching webhook info: %w", err)
		}

		if !info.IsSet() {
			fmt.Println("No webhook registered.")
			return nil
		}

		fmt.Printf("URL:             %s\n", info.URL)
		fmt.Printf("Pending updates: %d\n", info.PendingUpdateCount)
		if info.MaxConnections != 0 {
			fmt.Printf("Max connections: %d\n", info.MaxConnections)
		}
		if info.LastErrorDate != 0 {
			errTime := time.Unix(int64(info.LastErrorDate), 0)
			fmt.Printf("Last error:      %s (%s)\n", info.LastErrorMessage, errTime.Format(time.RFC3339))
		}
		return nil

	default:
		return fmt.Errorf("unknown webhook command: %s", os.Args[2])
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("payday-bot configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "sessions.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	environment := prompt(reader, "Environment (development/production)", "development")

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "0.0.0.0:8080")

	// Telegram
	fmt.Println("\n--- Telegram Configuration ---")
	fmt.Println("Values like ${VAR} are expanded from the environment at load time.")
	botToken := prompt(reader, "Bot token", "${PAYDAY_TELEGRAM_TOKEN}")
	webhookURL := prompt(reader, "Public webhook URL (empty to register manually)", "")
	webhookSecret := prompt(reader, "Webhook secret token", "${PAYDAY_WEBHOOK_SECRET}")

	// Session store
	fmt.Println("\n--- Session Store ---")
	driver := prompt(reader, "Driver (redis/sqlite/memory)", "redis")

	var redisAddr, sqlitePath string
	switch driver {
	case "redis":
		redisAddr = prompt(reader, "Redis address", "localhost:6379")
	case "sqlite":
		sqlitePath = prompt(reader, "SQLite database path", defaultDbPath)
	}
	sessionTTL := prompt(reader, "Session TTL", "24h")

	// Payroll sheet
	fmt.Println("\n--- Payroll Sheet ---")
	spreadsheetID := prompt(reader, "Spreadsheet ID (empty to configure later)", "")
	sheetRange := prompt(reader, "Range", config.DefaultRange)
	credentials := prompt(reader, "Service account JSON", "${PAYDAY_SHEETS_CREDENTIALS}")

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# payday-bot configuration\n")
	cfg.WriteString("# Generated by payday-bot init\n\n")

	cfg.WriteString(fmt.Sprintf("environment: \"%s\"\n\n", environment))

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("telegram:\n")
	cfg.WriteString(fmt.Sprintf("  token: \"%s\"\n", botToken))
	if webhookURL != "" {
		cfg.WriteString(fmt.Sprintf("  webhook_url: \"%s\"\n", webhookURL))
	}
	cfg.WriteString(fmt.Sprintf("  webhook_secret: \"%s\"\n", webhookSecret))
	cfg.WriteString("  # allowed_users: [\"alice\", \"bob\"]  # empty allows everyone\n")
	cfg.WriteString("\n")

	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  driver: \"%s\"\n", driver))
	cfg.WriteString(fmt.Sprintf("  ttl: \"%s\"\n", sessionTTL))
	switch driver {
	case "redis":
		cfg.WriteString("  redis:\n")
		cfg.WriteString(fmt.Sprintf("    addr: \"%s\"\n", redisAddr))
		cfg.WriteString("    password: \"${PAYDAY_REDIS_PASSWORD}\"\n")
		cfg.WriteString("    db: 0\n")
	case "sqlite":
		cfg.WriteString("  sqlite:\n")
		cfg.WriteString(fmt.Sprintf("    path: \"%s\"\n", sqlitePath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("sheets:\n")
	if spreadsheetID != "" {
		cfg.WriteString(fmt.Sprintf("  spreadsheet_id: \"%s\"\n", spreadsheetID))
	} else {
		cfg.WriteString("  # spreadsheet_id: \"1AbC...\"  # lookups fail politely until set\n")
	}
	cfg.WriteString(fmt.Sprintf("  range: \"%s\"\n", sheetRange))
	cfg.WriteString(fmt.Sprintf("  credentials_json: \"%s\"\n", credentials))
	cfg.WriteString("  # credentials_file: \"service-account.json\"  # development fallback\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Config may hold literal secrets if the user typed them in
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if driver == "sqlite" {
		dataDir := filepath.Dir(sqlitePath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the bot:")
	fmt.Printf("  payday-bot serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
