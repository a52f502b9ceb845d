// Package session keeps the one pending interaction each actor may have with
// the bot: which answer the bot is waiting for and what was collected so far.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAwaitingPostText         Kind = "awaiting_post_text"
	KindAwaitingPostImage        Kind = "awaiting_post_image"
	KindAwaitingFeedback         Kind = "awaiting_feedback"
	KindAwaitingRejectReason     Kind = "awaiting_reject_reason"
	KindAwaitingBlockReason      Kind = "awaiting_block_reason"
	KindAwaitingUnblockReason    Kind = "awaiting_unblock_reason"
	KindAwaitingFeedbackResponse Kind = "awaiting_feedback_response"
	KindAwaitingBroadcastContent Kind = "awaiting_broadcast_content"
	KindAwaitingBroadcastConfirm Kind = "awaiting_broadcast_confirm"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAwaitingPostText,
		KindAwaitingPostImage,
		KindAwaitingFeedback,
		KindAwaitingRejectReason,
		KindAwaitingBlockReason,
		KindAwaitingUnblockReason,
		KindAwaitingFeedbackResponse,
		KindAwaitingBroadcastContent,
		KindAwaitingBroadcastConfirm:
		return true
	default:
		return false
	}
}

// AdminOnly reports whether only admins may hold an interaction of this kind.
func (k Kind) AdminOnly() bool {
	switch k {
	case KindAwaitingRejectReason,
		KindAwaitingBlockReason,
		KindAwaitingUnblockReason,
		KindAwaitingFeedbackResponse,
		KindAwaitingBroadcastContent,
		KindAwaitingBroadcastConfirm:
		return true
	default:
		return false
	}
}

// Interaction is a tagged union: Kind decides which payload fields matter.
type Interaction struct {
	ID   uuid.UUID `json:"id"`
	Kind Kind      `json:"kind"`

	PostID      int64  `json:"post_id,omitempty"`
	FeedbackID  int64  `json:"feedback_id,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
	Text        string `json:"text,omitempty"`
	ImageFileID string `json:"image_file_id,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
}

func (i *Interaction) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i *Interaction) String() string {
	return fmt.Sprintf("Interaction(%s, %s)", i.Kind, i.ID)
}

var ErrNoInteraction = errors.New("no pending interaction")

// Store persists interactions keyed by the actor's Telegram id.
// Get returns ErrNoInteraction when nothing is stored.
type Store interface {
	Get(ctx context.Context, actorID int64) (*Interaction, error)
	Put(ctx context.Context, actorID int64, in *Interaction) error
	Clear(ctx context.Context, actorID int64) error
}

type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type Option func(m *Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store Store, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start replaces whatever the actor was doing with a fresh interaction.
func (m *Manager) Start(ctx context.Context, actorID int64, in Interaction) (*Interaction, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("unknown interaction kind %q", in.Kind)
	}
	in.ID = uuid.New()
	in.ExpiresAt = m.now().Add(m.ttl)
	if err := m.store.Put(ctx, actorID, &in); err != nil {
		return nil, fmt.Errorf("storing interaction: %w", err)
	}
	return &in, nil
}

// Advance moves an existing interaction to the next step, keeping its id and
// collected payload and extending the deadline.
func (m *Manager) Advance(ctx context.Context, actorID int64, in *Interaction, next Kind) error {
	if !next.Valid() {
		return fmt.Errorf("unknown interaction kind %q", next)
	}
	in.Kind = next
	in.ExpiresAt = m.now().Add(m.ttl)
	if err := m.store.Put(ctx, actorID, in); err != nil {
		return fmt.Errorf("storing interaction: %w", err)
	}
	return nil
}

// Current returns the live interaction. Expired ones are dropped and read as
// absent.
func (m *Manager) Current(ctx context.Context, actorID int64) (*Interaction, error) {
	in, err := m.store.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if in.Expired(m.now()) {
		if err := m.store.Clear(ctx, actorID); err != nil {
			return nil, fmt.Errorf("clearing expired interaction: %w", err)
		}
		return nil, ErrNoInteraction
	}
	return in, nil
}

// Finish clears the interaction. Clearing nothing is fine.
func (m *Manager) Finish(ctx context.Context, actorID int64) error {
	if err := m.store.Clear(ctx, actorID); err != nil {
		return fmt.Errorf("clearing interaction: %w", err)
	}
	return nil
}
