package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/C4T-BuT-S4D/predlozhka/internal/api"
	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage/storagetest"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "secret"

type fixture struct {
	e     *echo.Echo
	store *storage.Storage
	admin *models.User
	user  *models.User
	post  *models.Post
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store := storagetest.New(t)
	ctx := context.Background()

	admin := storagetest.CreateAdmin(t, store, 1, "admin")
	user := storagetest.CreateUser(t, store, 100, "user")

	post, err := store.CreatePost(ctx, user.ID, "hello", "img")
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, user.ID, "bad", "img2")
	require.NoError(t, err)
	_, err = store.TransitionPost(ctx, post.ID+1, models.PostStatusRejected, admin.ID, "nope")
	require.NoError(t, err)
	_, err = store.CreateFeedback(ctx, user.ID, "question")
	require.NoError(t, err)
	_, err = store.SetUserStatus(ctx, user.ID, models.UserStatusBlocked, admin.ID, "spam")
	require.NoError(t, err)

	e := echo.New()
	api.NewService(&config.Config{APIToken: token, TopUsersLimit: 5}, store).Register(e)
	return &fixture{e: e, store: store, admin: admin, user: user, post: post}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestAuth(t *testing.T) {
	f := setup(t)

	for _, header := range []string{"", "Bearer wrong", "Basic " + token} {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusOK, rec.Code, header)
	}

	t.Run("empty token locks the api", func(t *testing.T) {
		e := echo.New()
		api.NewService(&config.Config{}, f.store).Register(e)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer ")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})

	t.Run("health is public", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})
}

func TestPosts(t *testing.T) {
	f := setup(t)

	var pending []*models.Post
	require.Equal(t, http.StatusOK, f.get(t, "/api/posts", &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, f.post.ID, pending[0].ID)

	var rejected []*models.Post
	require.Equal(t, http.StatusOK, f.get(t, "/api/posts?status=rejected", &rejected))
	require.Len(t, rejected, 1)
	assert.Equal(t, "nope", rejected[0].RejectionReason)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/posts?status=deleted", nil))

	var post models.Post
	require.Equal(t, http.StatusOK, f.get(t, "/api/posts/2", &post))
	require.NotNil(t, post.Reviewer)
	assert.Equal(t, f.admin.ID, post.Reviewer.ID)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/posts/99", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/posts/x", nil))
}

func TestUsers(t *testing.T) {
	f := setup(t)

	var users []*models.User
	require.Equal(t, http.StatusOK, f.get(t, "/api/users", &users))
	assert.Len(t, users, 2)

	var blocks []*models.BlockRecord
	require.Equal(t, http.StatusOK, f.get(t, "/api/users/2/blocks", &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, "spam", blocks[0].Reason)
	assert.Nil(t, blocks[0].UnblockedAt)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/users/99/blocks", nil))
}

func TestFeedbackAndTop(t *testing.T) {
	f := setup(t)

	var items []*models.Feedback
	require.Equal(t, http.StatusOK, f.get(t, "/api/feedback/pending", &items))
	require.Len(t, items, 1)
	assert.Equal(t, "question", items[0].Message)

	var top []map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/api/stats/top?metric=submitted_posts", &top))
	require.Len(t, top, 1, "admins are not ranked")
	assert.Equal(t, "@user", top[0]["name"])
	assert.EqualValues(t, 2, top[0]["value"])

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/stats/top?metric=password", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/stats/top?metric=approved_posts&limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/stats/top?metric=approved_posts&limit=1000", nil))
}
