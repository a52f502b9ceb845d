// Package api serves read-only admin views of the moderation data over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const maxTopLimit = 100

type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListBlockRecords(ctx context.Context, userID int64) ([]*models.BlockRecord, error)

	GetPostWithDetails(ctx context.Context, postID int64) (*models.Post, error)
	ListPostsByStatus(ctx context.Context, status models.PostStatus) ([]*models.Post, error)

	ListPendingFeedback(ctx context.Context) ([]*models.Feedback, error)

	TopUsers(ctx context.Context, metric models.Counter, limit int) ([]*models.UserScore, error)
}

type Service struct {
	config *config.Config
	store  Store
	log    *logrus.Entry
}

func NewService(cfg *config.Config, store Store) *Service {
	return &Service{
		config: cfg,
		store:  store,
		log:    logrus.WithField("component", "api"),
	}
}

// Register mounts the routes. Everything under /api needs the bearer token.
func (s *Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.HandleHealth())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/api", middleware.KeyAuth(s.validateToken))
	g.GET("/posts", s.HandleListPosts())
	g.GET("/posts/:id", s.HandleGetPost())
	g.GET("/users", s.HandleListUsers())
	g.GET("/users/:id/blocks", s.HandleListBlocks())
	g.GET("/feedback/pending", s.HandlePendingFeedback())
	g.GET("/stats/top", s.HandleTop())
}

func (s *Service) validateToken(key string, _ echo.Context) (bool, error) {
	if s.config.APIToken == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.config.APIToken)) == 1, nil
}

func (s *Service) HandleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.store.Ping(c.Request().Context()); err != nil {
			s.log.Errorf("health check failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}

func (s *Service) HandleListPosts() echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.QueryParam("status")
		if raw == "" {
			raw = string(models.PostStatusPending)
		}
		status, err := models.ParsePostStatus(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		posts, err := s.store.ListPostsByStatus(c.Request().Context(), status)
		if err != nil {
			return s.fail(c, "listing posts", err)
		}
		return c.JSON(http.StatusOK, posts)
	}
}

func (s *Service) HandleGetPost() echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		post, err := s.store.GetPostWithDetails(c.Request().Context(), id)
		if err != nil {
			return s.fail(c, "getting post", err)
		}
		return c.JSON(http.StatusOK, post)
	}
}

func (s *Service) HandleListUsers() echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := s.store.ListUsers(c.Request().Context())
		if err != nil {
			return s.fail(c, "listing users", err)
		}
		return c.JSON(http.StatusOK, users)
	}
}

func (s *Service) HandleListBlocks() echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		ctx := c.Request().Context()
		if _, err := s.store.GetUser(ctx, id); err != nil {
			return s.fail(c, "getting user", err)
		}
		blocks, err := s.store.ListBlockRecords(ctx, id)
		if err != nil {
			return s.fail(c, "listing block records", err)
		}
		return c.JSON(http.StatusOK, blocks)
	}
}

func (s *Service) HandlePendingFeedback() echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := s.store.ListPendingFeedback(c.Request().Context())
		if err != nil {
			return s.fail(c, "listing feedback", err)
		}
		return c.JSON(http.StatusOK, items)
	}
}

type scoreResponse struct {
	UserID     int64  `json:"user_id"`
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Value      int64  `json:"value"`
}

func (s *Service) HandleTop() echo.HandlerFunc {
	return func(c echo.Context) error {
		metric, err := models.ParseCounter(c.QueryParam("metric"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		limit := s.config.TopUsersLimit
		if raw := c.QueryParam("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 || limit > maxTopLimit {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("limit must be within 1..%d", maxTopLimit)})
			}
		}

		scores, err := s.store.TopUsers(c.Request().Context(), metric, limit)
		if err != nil {
			return s.fail(c, "ranking users", err)
		}

		resp := make([]scoreResponse, 0, len(scores))
		for _, sc := range scores {
			resp = append(resp, scoreResponse{
				UserID:     sc.User.ID,
				TelegramID: sc.User.TelegramID,
				Name:       sc.User.DisplayName(),
				Value:      sc.Value,
			})
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

// fail maps store errors to responses. Details of internal failures stay in the log.
func (s *Service) fail(c echo.Context, what string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrStoreUnavailable):
		s.log.Errorf("%s: %v", what, err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
	default:
		s.log.Errorf("%s: %v", what, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fmt.Sprintf("failed %s", what)})
	}
}
