// ABOUTME: Bot orchestrator wiring the session store, sheet lookup, dialogue, and Telegram
// ABOUTME: Owns the HTTP server lifecycle, health endpoints, and graceful shutdown

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/paydesk/payday-bot/internal/config"
	"github.com/paydesk/payday-bot/internal/dialog"
	"github.com/paydesk/payday-bot/internal/payroll"
	"github.com/paydesk/payday-bot/internal/session"
	"github.com/paydesk/payday-bot/internal/sheets"
	"github.com/paydesk/payday-bot/internal/telegram"
)

// Bot orchestrates the payday-bot server components. It owns the session
// store, the Telegram client, the webhook handler, and the HTTP server
// fronting them.
type Bot struct {
	config     *config.Config
	sessions   session.Store
	client     *telegram.BotClient
	webhook    *telegram.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires the bot components from configuration. The session store and
// the bot token are verified up front so a misconfigured deployment fails
// at startup rather than on the first update.
func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	sessions, err := initSessions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := telegram.NewBotClient(cfg.Telegram.Token, logger)
	if err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	sheetSource := sheets.NewClient(cfg.Sheets, logger)
	lookup := payroll.NewService(sheetSource, logger)
	machine := dialog.NewMachine(sessions, lookup, logger)
	webhook := telegram.NewHandler(machine, client, cfg.Telegram, logger)

	b := &Bot{
		config:   cfg,
		sessions: sessions,
		client:   client,
		webhook:  webhook,
		logger:   logger.With("component", "bot"),
	}

	b.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           b.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return b, nil
}

// initSessions creates the configured session store and verifies it answers.
func initSessions(cfg *config.Config) (session.Store, error) {
	sessions, err := session.New(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("initializing session store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sessions.Ping(ctx); err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("session store health check: %w", err)
	}

	return sessions, nil
}

// router assembles the HTTP surface: the webhook route plus health probes.
func (b *Bot) router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Post("/telegram/webhook", b.webhook.ServeHTTP)
	r.Get("/health", b.handleHealth)
	r.Get("/health/ready", b.handleReady)

	return r
}

// Run starts the bot and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.registerWebhook(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", b.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := b.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		b.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		b.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := b.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// registerWebhook points Telegram at the configured public URL. Skipped when
// no URL is configured; the webhook subcommand manages it by hand then.
func (b *Bot) registerWebhook() error {
	url := b.config.Telegram.WebhookURL
	if url == "" {
		b.logger.Warn("telegram.webhook_url not set; register the webhook manually with the webhook subcommand")
		return nil
	}

	if err := b.client.SetWebhook(url, b.config.Telegram.WebhookSecret); err != nil {
		return fmt.Errorf("registering telegram webhook: %w", err)
	}
	b.logger.Info("telegram webhook registered", "url", url)
	return nil
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (b *Bot) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.logger.Info("shutting down bot")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", b.httpServer.Shutdown(ctx))

	b.webhook.Close()
	errs = appendCloseError(errs, "session store close", b.sessions.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// handleHealth returns 200 OK if the server is alive.
func (b *Bot) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the session store answers a ping.
// Details stay in the logs; the probe body is deliberately generic.
func (b *Bot) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := b.sessions.Ping(r.Context()); err != nil {
		b.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("session store unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
