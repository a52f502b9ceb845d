package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"gorm.io/gorm"
)

func (s *Storage) CreateFeedback(ctx context.Context, senderID int64, message string) (*models.Feedback, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: feedback message is required", ErrValidation)
	}

	var feedback models.Feedback
	if err := s.withTx(ctx, "create_feedback", func(tx *gorm.DB) error {
		if err := requireUser(tx, senderID); err != nil {
			return err
		}

		feedback = models.Feedback{
			UserID:  senderID,
			Message: message,
		}
		if err := tx.Create(&feedback).Error; err != nil {
			return fmt.Errorf("creating feedback: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (s *Storage) GetFeedback(ctx context.Context, feedbackID int64) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := s.withTx(ctx, "get_feedback", func(tx *gorm.DB) error {
		feedback = models.Feedback{}
		if err := tx.
			Preload("Sender").
			Where("id = ?", feedbackID).
			First(&feedback).
			Error; err != nil {
			return notFound(err, "feedback", feedbackID)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// ListPendingFeedback returns unanswered feedback, newest first.
func (s *Storage) ListPendingFeedback(ctx context.Context) ([]*models.Feedback, error) {
	var items []*models.Feedback
	if err := s.withTx(ctx, "list_pending_feedback", func(tx *gorm.DB) error {
		items = nil
		if err := tx.
			Preload("Sender").
			Where("admin_response IS NULL").
			Order("created_at DESC").
			Order("id DESC").
			Find(&items).
			Error; err != nil {
			return fmt.Errorf("listing pending feedback: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

// RespondToFeedback answers a pending feedback item. Answers are final:
// a second response is an ErrInvalidTransition and the first one is kept.
func (s *Storage) RespondToFeedback(ctx context.Context, feedbackID, actorID int64, response string) (*models.Feedback, error) {
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("%w: response is required", ErrValidation)
	}

	var feedback models.Feedback
	if err := s.withTx(ctx, "respond_feedback", func(tx *gorm.DB) error {
		feedback = models.Feedback{}
		if err := requireUser(tx, actorID); err != nil {
			return err
		}

		res := tx.
			Model(&models.Feedback{}).
			Where("id = ? AND admin_response IS NULL", feedbackID).
			Updates(map[string]any{
				"admin_response": response,
				"responded_by":   actorID,
				"responded_at":   time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("updating feedback: %w", res.Error)
		}

		if err := tx.
			Preload("Sender").
			Where("id = ?", feedbackID).
			First(&feedback).
			Error; err != nil {
			return notFound(err, "feedback", feedbackID)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: feedback %d is already answered", ErrInvalidTransition, feedbackID)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &feedback, nil
}
