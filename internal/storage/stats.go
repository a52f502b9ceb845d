package storage

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TopUsers ranks regular users by a counter, highest first, ties by id.
func (s *Storage) TopUsers(ctx context.Context, metric models.Counter, limit int) ([]*models.UserScore, error) {
	column, ok := metric.Column()
	if !ok {
		return nil, fmt.Errorf("%w: metric %v: %w", ErrValidation, metric, models.ErrUnknownCounter)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrValidation, limit)
	}

	var users []*models.User
	if err := s.withTx(ctx, "top_users", func(tx *gorm.DB) error {
		users = nil
		if err := tx.
			Where("role = ?", models.UserRoleRegular).
			Order(clause.OrderBy{Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: column}, Desc: true},
				{Column: clause.Column{Name: "id"}},
			}}).
			Limit(limit).
			Find(&users).
			Error; err != nil {
			return fmt.Errorf("ranking users by %s: %w", column, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	scores := make([]*models.UserScore, 0, len(users))
	for _, u := range users {
		scores = append(scores, &models.UserScore{User: u, Value: metric.Of(u)})
	}
	return scores, nil
}
