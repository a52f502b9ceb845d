package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *storage.Storage {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "ctl.db")
	t.Setenv("PREDLOZHKA_DATABASE_DRIVER", storage.DriverSQLite)
	t.Setenv("PREDLOZHKA_SQLITE_PATH", path)

	run(t, "migrate")

	db, err := storage.OpenDB(storage.DriverSQLite, path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return storage.New(db)
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	out, err := execute(args...)
	require.NoError(t, err, out)
	return out
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPromote(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()
	require.NoError(t, s.RegisterOrUpdateUser(ctx, 42, "someone", "Some One"))

	assert.Contains(t, run(t, "promote", "42"), "user 42 is now an admin")

	user, err := s.GetUserByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	_, err = execute("promote", "43")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = execute("promote", "abc")
	assert.Error(t, err)
}

func TestListings(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()
	require.NoError(t, s.RegisterOrUpdateUser(ctx, 42, "someone", "Some One"))
	user, err := s.GetUserByTelegramID(ctx, 42)
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, user.ID, "first post", "img")
	require.NoError(t, err)

	out := run(t, "users")
	assert.Contains(t, out, "@someone")
	assert.Contains(t, out, "regular")

	out = run(t, "posts")
	assert.Contains(t, out, "first post")
	assert.NotContains(t, run(t, "posts", "--status", "approved"), "first post")

	_, err = execute("posts", "--status", "deleted")
	assert.Error(t, err)

	var scores []*models.UserScore
	require.NoError(t, json.Unmarshal([]byte(run(t, "top", "--metric", "submitted_posts", "--json")), &scores))
	require.Len(t, scores, 1)
	assert.EqualValues(t, 1, scores[0].Value)
	assert.Equal(t, "someone", scores[0].User.Username)
}
