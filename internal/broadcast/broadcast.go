// Package broadcast delivers an admin announcement to every active user.
package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/C4T-BuT-S4D/predlozhka/internal/metrics"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Audience interface {
	ListActiveUsers(ctx context.Context) ([]*models.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type Message struct {
	Text        string
	ImageFileID string
	Actor       string
}

type Result struct {
	ID        uuid.UUID `json:"id"`
	Total     int       `json:"total"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
}

// DeliveryPercent is rounded to the nearest percent, halves up.
// An empty audience counts as 0%.
func (r *Result) DeliveryPercent() int {
	if r.Total == 0 {
		return 0
	}
	return (r.Delivered*200 + r.Total) / (2 * r.Total)
}

func (r *Result) String() string {
	return fmt.Sprintf("Broadcast(%s, %d/%d delivered, %d failed)", r.ID, r.Delivered, r.Total, r.Failed)
}

type Broadcaster struct {
	audience    Audience
	notifier    Notifier
	limiter     *rate.Limiter
	concurrency int
}

// New paces deliveries to perSecond messages per second. Telegram starts
// throttling bots at roughly 30.
func New(audience Audience, notifier Notifier, perSecond float64, concurrency int) *Broadcaster {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Broadcaster{
		audience:    audience,
		notifier:    notifier,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		concurrency: concurrency,
	}
}

// Send delivers msg to every active user. A failed delivery is counted and
// skipped. An error is returned only if the audience can't be listed or ctx
// ends, together with whatever was delivered by then.
func (b *Broadcaster) Send(ctx context.Context, msg Message) (*Result, error) {
	res := &Result{ID: uuid.New()}
	logger := logrus.WithFields(logrus.Fields{
		"component":    "broadcast",
		"broadcast_id": res.ID,
	})

	users, err := b.audience.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing audience: %w", err)
	}
	res.Total = len(users)
	logger.Infof("sending broadcast from %s to %d users", msg.Actor, res.Total)

	var delivered, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, user := range users {
		if err := b.limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			err := b.notifier.Notify(gctx, &models.Notification{
				Recipient:   user.TelegramID,
				Kind:        models.NotificationMassBroadcast,
				UserID:      user.ID,
				Actor:       msg.Actor,
				Text:        msg.Text,
				ImageFileID: msg.ImageFileID,
			})
			metrics.BroadcastDeliveries.WithLabelValues(metrics.Result(err)).Inc()
			if err != nil {
				logger.Warnf("failed to deliver to %v: %v", user, err)
				failed.Add(1)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Delivered = int(delivered.Load())
	res.Failed = int(failed.Load())
	logger.Infof("finished %v", res)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("broadcast interrupted: %w", err)
	}
	return res, nil
}
