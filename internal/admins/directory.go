package admins

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/sirupsen/logrus"
)

type Store interface {
	RegisterOrUpdateUser(ctx context.Context, telegramID int64, username, fullName string) error
	PromoteToAdmin(ctx context.Context, telegramID int64) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ListAdminTelegramIDs(ctx context.Context) ([]int64, error)
}

// Directory answers "who is an admin". The configured bootstrap ids are only
// consulted when a user registers, to promote them; every check afterwards
// reads the persisted role.
type Directory struct {
	store     Store
	bootstrap map[int64]struct{}
}

func New(store Store, bootstrapIDs []int64) *Directory {
	bootstrap := make(map[int64]struct{}, len(bootstrapIDs))
	for _, id := range bootstrapIDs {
		bootstrap[id] = struct{}{}
	}
	return &Directory{
		store:     store,
		bootstrap: bootstrap,
	}
}

func (d *Directory) IsBootstrap(telegramID int64) bool {
	_, ok := d.bootstrap[telegramID]
	return ok
}

// Register creates or refreshes the user and promotes bootstrap admins.
func (d *Directory) Register(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error) {
	if err := d.store.RegisterOrUpdateUser(ctx, telegramID, username, fullName); err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	user, err := d.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("getting registered user: %w", err)
	}

	if d.IsBootstrap(telegramID) && !user.IsAdmin() {
		logrus.WithField("component", "admins").Infof("promoting bootstrap admin %d", telegramID)
		if err := d.store.PromoteToAdmin(ctx, telegramID); err != nil {
			return nil, fmt.Errorf("promoting bootstrap admin: %w", err)
		}
		user.Role = models.UserRoleAdmin
	}

	return user, nil
}

// Promote makes an already registered user an admin. There is no demotion.
func (d *Directory) Promote(ctx context.Context, telegramID int64) error {
	if err := d.store.PromoteToAdmin(ctx, telegramID); err != nil {
		return fmt.Errorf("promoting user %d: %w", telegramID, err)
	}
	return nil
}

// IsAdmin reads the persisted role. Unknown users are not admins.
func (d *Directory) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	user, err := d.store.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting user: %w", err)
	}
	return user.IsAdmin(), nil
}

func (d *Directory) AdminTelegramIDs(ctx context.Context) ([]int64, error) {
	ids, err := d.store.ListAdminTelegramIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	return ids, nil
}
