// Package notify delivers bot messages to a Discord-compatible webhook.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/httpx"
	"github.com/rs/zerolog"
)

// MaxContentLength is the webhook message limit; longer text is cut.
const MaxContentLength = 2000

type payload struct {
	Content string `json:"content"`
}

type Webhook struct {
	url    string
	http   *httpx.Client
	logger zerolog.Logger
}

func NewWebhook(url string, client *httpx.Client, logger zerolog.Logger) *Webhook {
	if client == nil {
		client = httpx.New(10*time.Second, 2)
	}
	return &Webhook{url: url, http: client.RateLimitOnly(), logger: logger}
}

// Notify posts one message. Empty messages are dropped.
func (w *Webhook) Notify(ctx context.Context, message string) error {
	if message == "" {
		return nil
	}
	content := truncate(message, MaxContentLength)
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "encode webhook payload", err)
	}
	if _, err := httpx.DoBodyJSON(ctx, w.http, http.MethodPost, w.url, body, nil, nil); err != nil {
		return clierr.Wrap(clierr.CodeNotify, "deliver webhook message", err)
	}
	w.logger.Debug().Int("length", len([]rune(content))).Msg("webhook message delivered")
	return nil
}

// Log writes messages to the logger instead of a webhook.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Notify(_ context.Context, message string) error {
	if message != "" {
		l.Logger.Info().Str("notification", message).Msg("notify")
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
