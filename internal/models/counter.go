package models

import (
	"errors"
	"fmt"
)

// Counter is one of the per-user post statistics. It doubles as the
// leaderboard metric, so both can only ever address these three columns.
type Counter int

const (
	CounterSubmittedPosts Counter = iota + 1
	CounterApprovedPosts
	CounterRejectedPosts
)

var ErrUnknownCounter = errors.New("unknown counter")

var counterColumns = map[Counter]string{
	CounterSubmittedPosts: "submitted_posts",
	CounterApprovedPosts:  "approved_posts",
	CounterRejectedPosts:  "rejected_posts",
}

func ParseCounter(s string) (Counter, error) {
	for c, name := range counterColumns {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCounter, s)
}

// Column returns the users column backing the counter.
func (c Counter) Column() (string, bool) {
	name, ok := counterColumns[c]
	return name, ok
}

func (c Counter) Valid() bool {
	_, ok := counterColumns[c]
	return ok
}

func (c Counter) String() string {
	if name, ok := counterColumns[c]; ok {
		return name
	}
	return fmt.Sprintf("Counter(%d)", int(c))
}

// Of reads the counter value from a loaded user.
func (c Counter) Of(u *User) int64 {
	switch c {
	case CounterSubmittedPosts:
		return u.SubmittedPosts
	case CounterApprovedPosts:
		return u.ApprovedPosts
	case CounterRejectedPosts:
		return u.RejectedPosts
	}
	return 0
}
