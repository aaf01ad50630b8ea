// Package notify mirrors roll and combat messages to a Discord channel webhook.
// Message content is forwarded as-is.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// webhookExecutor is the part of *discordgo.Session the notifier needs
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// WebhookConfig holds configuration for the Discord webhook notifier
type WebhookConfig struct {
	URL      string // Required, https://discord.com/api/webhooks/{id}/{token}
	Username string
	Logger   *zap.Logger

	executor webhookExecutor
}

// Webhook posts messages to one Discord webhook
type Webhook struct {
	id       string
	token    string
	username string
	executor webhookExecutor
	logger   *zap.Logger
}

// NewWebhook creates a notifier for cfg.URL
func NewWebhook(cfg *WebhookConfig) (*Webhook, error) {
	id, token, err := ParseWebhookURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	w := &Webhook{
		id:       id,
		token:    token,
		username: cfg.Username,
		executor: cfg.executor,
		logger:   cfg.Logger,
	}
	if w.executor == nil {
		// webhooks need no bot token
		s, err := discordgo.New("")
		if err != nil {
			return nil, fmt.Errorf("failed to create discord session: %w", err)
		}
		w.executor = s
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w, nil
}

// Notify posts msg.Content. Only roll and combat messages are sent; others are ignored.
func (w *Webhook) Notify(ctx context.Context, msg *session.Message) error {
	if msg == nil || (msg.Kind != session.KindRoll && msg.Kind != session.KindCombat) {
		return nil
	}

	_, err := w.executor.WebhookExecute(w.id, w.token, false, &discordgo.WebhookParams{
		Content:  msg.Content,
		Username: w.username,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to execute webhook: %w", err)
	}

	w.logger.Debug("forwarded message to discord",
		zap.String("message_id", msg.ID),
		zap.String("kind", string(msg.Kind)))
	return nil
}

// ParseWebhookURL extracts the webhook id and token
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "webhooks" && i+2 < len(parts) && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid webhook URL: expected .../webhooks/{id}/{token}")
}
