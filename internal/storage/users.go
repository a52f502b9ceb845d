package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegisterOrUpdateUser inserts the user on first contact and afterwards only
// refreshes the display fields. Role, status and counters are never touched.
func (s *Storage) RegisterOrUpdateUser(ctx context.Context, telegramID int64, username, fullName string) error {
	return s.withTx(ctx, "register_user", func(tx *gorm.DB) error {
		user := &models.User{
			TelegramID: telegramID,
			Username:   username,
			FullName:   fullName,
			Role:       models.UserRoleRegular,
			Status:     models.UserStatusActive,
		}
		if err := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "telegram_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"username", "full_name", "updated_at"}),
			}).
			Create(user).
			Error; err != nil {
			return fmt.Errorf("upserting user: %w", err)
		}
		return nil
	})
}

// PromoteToAdmin sets role=admin. Promoting an admin again is a no-op.
func (s *Storage) PromoteToAdmin(ctx context.Context, telegramID int64) error {
	return s.withTx(ctx, "promote_admin", func(tx *gorm.DB) error {
		res := tx.
			Model(&models.User{}).
			Where("telegram_id = ?", telegramID).
			Update("role", models.UserRoleAdmin)
		if res.Error != nil {
			return fmt.Errorf("promoting user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user tg=%d: %w", telegramID, ErrNotFound)
		}
		return nil
	})
}

func (s *Storage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.withTx(ctx, "get_user_by_telegram_id", func(tx *gorm.DB) error {
		if err := tx.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return notFound(err, "user with telegram id", telegramID)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	if err := s.withTx(ctx, "get_user", func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return notFound(err, "user", userID)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.withTx(ctx, "list_users", func(tx *gorm.DB) error {
		users = nil
		if err := tx.Order("id ASC").Find(&users).Error; err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return users, nil
}

// ListActiveUsers returns everyone who is not blocked, the broadcast audience.
func (s *Storage) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.withTx(ctx, "list_active_users", func(tx *gorm.DB) error {
		users = nil
		if err := tx.
			Where("status = ?", models.UserStatusActive).
			Order("id ASC").
			Find(&users).
			Error; err != nil {
			return fmt.Errorf("listing active users: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Storage) AdjustUserCounter(ctx context.Context, userID int64, counter models.Counter, delta int64) error {
	return s.withTx(ctx, "adjust_user_counter", func(tx *gorm.DB) error {
		return adjustCounter(tx, userID, counter, delta)
	})
}

// adjustCounter adds delta to one of the closed set of counter columns.
// The column is resolved from the enum and quoted by gorm.
func adjustCounter(tx *gorm.DB, userID int64, counter models.Counter, delta int64) error {
	column, ok := counter.Column()
	if !ok {
		return fmt.Errorf("%w: counter %v: %w", ErrValidation, counter, models.ErrUnknownCounter)
	}
	if delta < 0 {
		return fmt.Errorf("%w: counter %s cannot decrease (delta %d)", ErrValidation, column, delta)
	}

	res := tx.
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr("? + ?", clause.Column{Name: column}, delta))
	if res.Error != nil {
		return fmt.Errorf("updating %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// SetUserStatus moves the user between active and blocked and keeps the
// block history: blocking opens a record, unblocking closes the open one.
// Setting the status the user already has is an ErrInvalidTransition.
// requireUser fails with ErrNotFound when no user has the id.
func requireUser(tx *gorm.DB, userID int64) error {
	var user models.User
	if err := tx.Select("id").Where("id = ?", userID).First(&user).Error; err != nil {
		return notFound(err, "user", userID)
	}
	return nil
}

func (s *Storage) SetUserStatus(
	ctx context.Context,
	userID int64,
	status models.UserStatus,
	actorID int64,
	reason string,
) (*models.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown user status %q", ErrValidation, status)
	}

	var user models.User
	if err := s.withTx(ctx, "set_user_status", func(tx *gorm.DB) error {
		user = models.User{}
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return notFound(err, "user", userID)
		}
		if err := requireUser(tx, actorID); err != nil {
			return err
		}

		res := tx.
			Model(&models.User{}).
			Where("id = ? AND status <> ?", userID, status).
			Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("updating user status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: user %d is already %s", ErrInvalidTransition, userID, status)
		}

		switch status {
		case models.UserStatusBlocked:
			if err := tx.Create(&models.BlockRecord{
				UserID:  userID,
				AdminID: actorID,
				Reason:  reason,
			}).Error; err != nil {
				return fmt.Errorf("opening block record: %w", err)
			}
		case models.UserStatusActive:
			now := time.Now()
			if err := tx.
				Model(&models.BlockRecord{}).
				Where("user_id = ? AND unblocked_at IS NULL", userID).
				Updates(map[string]any{
					"unblocked_at":   now,
					"unblocked_by":   actorID,
					"unblock_reason": reason,
				}).
				Error; err != nil {
				return fmt.Errorf("closing block record: %w", err)
			}
		}

		user.Status = status
		return nil
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListBlockRecords returns the block history of a user, newest first.
func (s *Storage) ListBlockRecords(ctx context.Context, userID int64) ([]*models.BlockRecord, error) {
	var records []*models.BlockRecord
	if err := s.withTx(ctx, "list_block_records", func(tx *gorm.DB) error {
		records = nil
		if err := tx.
			Where("user_id = ?", userID).
			Order("blocked_at DESC").
			Order("id DESC").
			Find(&records).
			Error; err != nil {
			return fmt.Errorf("listing block records: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Storage) ListAdminTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.withTx(ctx, "list_admin_ids", func(tx *gorm.DB) error {
		ids = nil
		if err := tx.
			Model(&models.User{}).
			Where("role = ?", models.UserRoleAdmin).
			Order("id ASC").
			Pluck("telegram_id", &ids).
			Error; err != nil {
			return fmt.Errorf("listing admins: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return ids, nil
}
