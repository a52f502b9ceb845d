// Package notify fans notification events out to delivery channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Multi delivers to every notifier even if some fail and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n *models.Notification) error {
	var errs []error
	for i, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
