// Package storagetest gives every test its own migrated sqlite database.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/stretchr/testify/require"
)

// New creates a fresh database file under t.TempDir. It is closed and removed
// when the test ends, callers never clean up themselves.
func New(t *testing.T) *storage.Storage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "predlozhka.db")
	db, err := storage.OpenDB(storage.DriverSQLite, path)
	require.NoError(t, err, "opening test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection serializes writers the same way sqlite does anyway and
	// keeps concurrent tests free of SQLITE_BUSY noise.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	s := storage.New(db, storage.WithRetry(storage.DefaultRetryAttempts, time.Millisecond))
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// CreateUser registers a user and returns the stored row.
func CreateUser(t *testing.T, s *storage.Storage, telegramID int64, username string) *models.User {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, s.RegisterOrUpdateUser(ctx, telegramID, username, username+" full"))
	user, err := s.GetUserByTelegramID(ctx, telegramID)
	require.NoError(t, err)
	return user
}

// CreateAdmin registers a user and promotes it.
func CreateAdmin(t *testing.T, s *storage.Storage, telegramID int64, username string) *models.User {
	t.Helper()

	ctx := context.Background()
	CreateUser(t, s, telegramID, username)
	require.NoError(t, s.PromoteToAdmin(ctx, telegramID))
	user, err := s.GetUserByTelegramID(ctx, telegramID)
	require.NoError(t, err)
	return user
}
