package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type MemoryStore struct {
	mu    sync.Mutex
	items map[int64]Interaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]Interaction),
	}
}

func (s *MemoryStore) Get(_ context.Context, actorID int64) (*Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.items[actorID]
	if !ok {
		return nil, ErrNoInteraction
	}
	return &in, nil
}

func (s *MemoryStore) Put(_ context.Context, actorID int64, in *Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[actorID] = *in
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, actorID)
	return nil
}

// Sweep drops interactions that expired before now and returns how many.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, in := range s.items {
		if in.Expired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) RunCleaner(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	logger := logrus.WithField("component", "session_cleaner")

	for {
		select {
		case <-t.C:
			if removed := s.Sweep(time.Now()); removed > 0 {
				logger.Infof("dropped %d expired interactions", removed)
			} else {
				logger.Debug("no expired interactions")
			}
		case <-ctx.Done():
			return
		}
	}
}
