// ABOUTME: Outbound Telegram client implementing the Sender interface
// ABOUTME: Wraps the Bot API for replies, chat actions, and webhook management

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// apiTimeout bounds every Bot API round trip. Webhook processing is
// synchronous, so a hung call would hold the delivery past Telegram's own
// timeout and trigger a redelivery.
const apiTimeout = 30 * time.Second

// Sender delivers replies and chat actions to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
}

// BotClient is the Bot API backed Sender. It also carries the webhook
// management calls used by the CLI.
type BotClient struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewBotClient authorizes against the Bot API with the given token.
// The underlying getMe call verifies the token before anything else runs.
func NewBotClient(token string, logger *slog.Logger) (*BotClient, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{
		Timeout: apiTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("authorizing bot: %w", err)
	}

	logger = logger.With("component", "telegram")
	logger.Info("bot authorized", "username", api.Self.UserName)

	return &BotClient{
		api:    api,
		logger: logger,
	}, nil
}

// Username returns the authorized bot's username.
func (c *BotClient) Username() string {
	return c.api.Self.UserName
}

// SendMessage sends a plain-text reply to a chat. The Bot API library is
// not context-aware; the context gates the attempt, not the round trip.
func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// SendTyping shows the typing indicator while a lookup runs. Failures are
// returned for the caller to log; a missing indicator never blocks a reply.
func (c *BotClient) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := c.api.Request(action); err != nil {
		return fmt.Errorf("sending chat action: %w", err)
	}
	return nil
}

// SetWebhook points the bot's webhook at the given URL. The secret token
// postdates this library's WebhookConfig, so the call goes out raw.
func (c *BotClient) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}

	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}

	c.logger.Info("webhook registered", "url", url, "with_secret", secret != "")
	return nil
}

// DeleteWebhook unregisters the webhook, optionally discarding queued updates.
func (c *BotClient) DeleteWebhook(dropPending bool) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}

	c.logger.Info("webhook deleted", "drop_pending", dropPending)
	return nil
}

// WebhookInfo fetches the current webhook registration state.
func (c *BotClient) WebhookInfo() (tgbotapi.WebhookInfo, error) {
	info, err := c.api.GetWebhookInfo()
	if err != nil {
		return tgbotapi.WebhookInfo{}, fmt.Errorf("getting webhook info: %w", err)
	}
	return info, nil
}
