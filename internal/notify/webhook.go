package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// WebhookEvent is the JSON body posted for every mirrored notification.
type WebhookEvent struct {
	ID     uuid.UUID            `json:"id"`
	SentAt time.Time            `json:"sent_at"`
	Event  *models.Notification `json:"event"`
}

// Webhook mirrors moderation events to an external endpoint. Broadcast
// messages are not mirrored, there is one per user.
type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "predlozhka-webhook"),
		url: url,
	}
}

func (w *Webhook) Notify(ctx context.Context, n *models.Notification) error {
	if n.Kind == models.NotificationMassBroadcast {
		return nil
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(&WebhookEvent{
			ID:     uuid.New(),
			SentAt: time.Now().UTC(),
			Event:  n,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("unexpected webhook status code: %d %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
