package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hook struct {
	mu     sync.Mutex
	events []notify.WebhookEvent
	status int
}

func (h *hook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var event notify.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.events = append(h.events, event)
	status := h.status
	h.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (h *hook) received() []notify.WebhookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notify.WebhookEvent(nil), h.events...)
}

func (h *hook) setStatus(status int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
}

func TestWebhook(t *testing.T) {
	h := &hook{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	w := notify.NewWebhook(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, w.Notify(ctx, &models.Notification{
		Recipient: 100,
		Kind:      models.NotificationPostRejected,
		PostID:    7,
		Reason:    "spam",
	}))

	events := h.received()
	require.Len(t, events, 1)
	got := events[0]
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.SentAt.IsZero())
	assert.Equal(t, models.NotificationPostRejected, got.Event.Kind)
	assert.Equal(t, int64(100), got.Event.Recipient)
	assert.Equal(t, int64(7), got.Event.PostID)
	assert.Equal(t, "spam", got.Event.Reason)

	t.Run("broadcasts are not mirrored", func(t *testing.T) {
		require.NoError(t, w.Notify(ctx, &models.Notification{Recipient: 1, Kind: models.NotificationMassBroadcast}))
		assert.Len(t, h.received(), 1)
	})

	t.Run("error status", func(t *testing.T) {
		h.setStatus(http.StatusBadGateway)
		err := w.Notify(ctx, &models.Notification{Recipient: 1, Kind: models.NotificationUserBlocked})
		assert.ErrorContains(t, err, "502")
	})
}

func TestWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	w := notify.NewWebhook(url, time.Second)
	err := w.Notify(context.Background(), &models.Notification{Recipient: 1, Kind: models.NotificationUserBlocked})
	assert.Error(t, err)
}

type notifierFunc func(ctx context.Context, n *models.Notification) error

func (f notifierFunc) Notify(ctx context.Context, n *models.Notification) error {
	return f(ctx, n)
}

func TestMulti(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	m := notify.Multi{
		notifierFunc(func(context.Context, *models.Notification) error {
			calls = append(calls, "first")
			return boom
		}),
		notifierFunc(func(context.Context, *models.Notification) error {
			calls = append(calls, "second")
			return nil
		}),
	}

	err := m.Notify(context.Background(), &models.Notification{Kind: models.NotificationPostApproved})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NoError(t, notify.Multi{}.Notify(context.Background(), &models.Notification{}))
}
