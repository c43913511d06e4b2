// Package notify forwards hook events to configured webhooks. Delivery is
// best-effort: failures are logged and never reach the caller.
package notify

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/events"
)

// Options configures webhook delivery.
type Options struct {
	URLs       []string
	Timeout    time.Duration
	RetryCount int
}

// Notifier posts hook events to webhooks.
type Notifier struct {
	client *resty.Client
	urls   []string
	logger *zap.Logger
}

// New builds a notifier. With no URLs it is inert but still safe to attach.
func New(opts Options, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		client: client,
		urls:   opts.URLs,
		logger: logger,
	}
}

// Attach subscribes the notifier to every event on the bus.
func (n *Notifier) Attach(bus *events.Bus) {
	bus.SubscribeAll(n.deliver)
}

// payload is the webhook body.
type payload struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (n *Notifier) deliver(event *events.HookEvent) {
	if len(n.urls) == 0 {
		return
	}

	body := payload{
		Type:      string(event.Type),
		SessionID: event.SessionID,
		Message:   event.FormatMessage(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for _, url := range n.urls {
		resp, err := n.client.R().SetBody(body).Post(url)
		if err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("url", url), zap.Error(err))
			continue
		}
		if resp.IsError() {
			n.logger.Warn("webhook rejected event",
				zap.String("url", url), zap.Int("status", resp.StatusCode()))
		}
	}
}
