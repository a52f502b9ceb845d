package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"gorm.io/gorm"
)

// CreatePost stores a pending post and bumps the owner's submitted_posts in
// the same transaction.
func (s *Storage) CreatePost(ctx context.Context, ownerID int64, text, imageFileID string) (*models.Post, error) {
	var post models.Post
	if err := s.withTx(ctx, "create_post", func(tx *gorm.DB) error {
		if err := adjustCounter(tx, ownerID, models.CounterSubmittedPosts, 1); err != nil {
			return fmt.Errorf("counting submission: %w", err)
		}

		post = models.Post{
			UserID:      ownerID,
			TextContent: text,
			ImageFileID: imageFileID,
			Status:      models.PostStatusPending,
		}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("creating post: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Storage) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	var post models.Post
	if err := s.withTx(ctx, "get_post", func(tx *gorm.DB) error {
		post = models.Post{}
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return notFound(err, "post", postID)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPostWithDetails loads the post together with its owner and reviewer.
func (s *Storage) GetPostWithDetails(ctx context.Context, postID int64) (*models.Post, error) {
	var post models.Post
	if err := s.withTx(ctx, "get_post_details", func(tx *gorm.DB) error {
		post = models.Post{}
		if err := tx.
			Preload("Owner").
			Preload("Reviewer").
			Where("id = ?", postID).
			First(&post).
			Error; err != nil {
			return notFound(err, "post", postID)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPostsByStatus returns posts oldest first, so the review queue is FIFO.
func (s *Storage) ListPostsByStatus(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown post status %q", ErrValidation, status)
	}

	var posts []*models.Post
	if err := s.withTx(ctx, "list_posts_by_status", func(tx *gorm.DB) error {
		posts = nil
		if err := tx.
			Preload("Owner").
			Where("status = ?", status).
			Order("created_at ASC").
			Order("id ASC").
			Find(&posts).
			Error; err != nil {
			return fmt.Errorf("listing %s posts: %w", status, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostsByOwner returns the user's posts, most recent first.
func (s *Storage) ListPostsByOwner(ctx context.Context, ownerID int64) ([]*models.Post, error) {
	var posts []*models.Post
	if err := s.withTx(ctx, "list_posts_by_owner", func(tx *gorm.DB) error {
		posts = nil
		if err := tx.
			Where("user_id = ?", ownerID).
			Order("created_at DESC").
			Order("id DESC").
			Find(&posts).
			Error; err != nil {
			return fmt.Errorf("listing posts of user %d: %w", ownerID, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return posts, nil
}

// TransitionPost reviews a pending post. The status check and the write are
// a single conditional update, so of two racing reviews exactly one wins and
// the other gets ErrInvalidTransition. The owner's approved/rejected counter
// is bumped in the same transaction.
func (s *Storage) TransitionPost(
	ctx context.Context,
	postID int64,
	status models.PostStatus,
	actorID int64,
	reason string,
) (*models.Post, error) {
	counter, ok := status.ReviewCounter()
	if !ok {
		return nil, fmt.Errorf("%w: post cannot transition to %q", ErrValidation, status)
	}
	if status == models.PostStatusRejected && strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	var post models.Post
	if err := s.withTx(ctx, "transition_post", func(tx *gorm.DB) error {
		post = models.Post{}
		if err := requireUser(tx, actorID); err != nil {
			return err
		}

		updates := map[string]any{
			"status":      status,
			"reviewed_at": time.Now(),
			"reviewed_by": actorID,
		}
		if status == models.PostStatusRejected {
			updates["rejection_reason"] = reason
		}

		res := tx.
			Model(&models.Post{}).
			Where("id = ? AND status = ?", postID, models.PostStatusPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("updating post status: %w", res.Error)
		}

		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return notFound(err, "post", postID)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: post %d is already %s", ErrInvalidTransition, postID, post.Status)
		}

		if err := adjustCounter(tx, post.UserID, counter, 1); err != nil {
			return fmt.Errorf("counting review: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &post, nil
}
