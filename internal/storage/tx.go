package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 100 * time.Millisecond
)

// withTx runs op in its own transaction. The transaction is committed when op
// returns nil and rolled back otherwise; gorm releases the connection either
// way. Lock contention is retried with a fixed delay, anything else is
// returned at once. op may run more than once and must not keep state
// between runs.
func (s *Storage) withTx(ctx context.Context, name string, op func(tx *gorm.DB) error) error {
	logger := logrus.WithFields(logrus.Fields{
		"component": "storage",
		"operation": name,
	})

	var err error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(op)
		if err == nil {
			return nil
		}
		if isDomainError(err) {
			return err
		}
		if !isTransient(err) {
			metrics.StoreUnavailable.WithLabelValues("fault").Inc()
			return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, name, err)
		}
		if attempt == s.retryAttempts {
			break
		}

		metrics.StoreRetries.Inc()
		logger.Warnf("store busy on attempt %d/%d, retrying in %v: %v", attempt, s.retryAttempts, s.retryDelay, err)

		t := time.NewTimer(s.retryDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	metrics.StoreUnavailable.WithLabelValues("busy").Inc()
	logger.Errorf("store still busy after %d attempts: %v", s.retryAttempts, err)
	return fmt.Errorf("%w: %s: busy after %d attempts: %w", ErrStoreUnavailable, name, s.retryAttempts, err)
}
