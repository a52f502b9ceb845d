package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/C4T-BuT-S4D/predlozhka/internal/metrics"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/sirupsen/logrus"
)

type Store interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	SetUserStatus(ctx context.Context, userID int64, status models.UserStatus, actorID int64, reason string) (*models.User, error)

	CreatePost(ctx context.Context, ownerID int64, text, imageFileID string) (*models.Post, error)
	TransitionPost(ctx context.Context, postID int64, status models.PostStatus, actorID int64, reason string) (*models.Post, error)

	CreateFeedback(ctx context.Context, senderID int64, message string) (*models.Feedback, error)
	RespondToFeedback(ctx context.Context, feedbackID, actorID int64, response string) (*models.Feedback, error)
}

type Directory interface {
	Register(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error)
	AdminTelegramIDs(ctx context.Context) ([]int64, error)
}

// Notifier delivers outbound events. Delivery is best-effort: the service
// logs failures and never retries or reports them to its callers.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type NotifierFunc func(ctx context.Context, n *models.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n *models.Notification) error {
	return f(ctx, n)
}

// Service runs the moderation workflow: post review, feedback answers and
// user blocking. Actors are identified by their Telegram id. Every state
// change is committed by the store before any notification is sent.
type Service struct {
	store    Store
	admins   Directory
	notifier Notifier
	log      *logrus.Entry
}

func NewService(store Store, admins Directory, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, *models.Notification) error { return nil })
	}
	return &Service{
		store:    store,
		admins:   admins,
		notifier: notifier,
		log:      logrus.WithField("component", "moderation"),
	}
}

func (s *Service) Register(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error) {
	return s.admins.Register(ctx, telegramID, username, fullName)
}

// Actor resolves a registered user by Telegram id.
func (s *Service) Actor(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("resolving actor %d: %w", telegramID, err)
	}
	return user, nil
}

// RequireAdmin resolves the actor and checks the persisted admin role.
func (s *Service) RequireAdmin(ctx context.Context, telegramID int64) (*models.User, error) {
	actor, err := s.Actor(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: user %d is not an admin", ErrForbidden, telegramID)
	}
	return actor, nil
}

func (s *Service) activeActor(ctx context.Context, telegramID int64) (*models.User, error) {
	actor, err := s.Actor(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if actor.IsBlocked() {
		return nil, fmt.Errorf("%w: user %d", ErrBlocked, telegramID)
	}
	return actor, nil
}

// SubmitPost queues a post for review and alerts the admins.
func (s *Service) SubmitPost(ctx context.Context, actorTelegramID int64, req SubmitPostRequest) (*models.Post, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	actor, err := s.activeActor(ctx, actorTelegramID)
	if err != nil {
		return nil, err
	}

	post, err := s.store.CreatePost(ctx, actor.ID, req.Text, req.ImageFileID)
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	s.log.Infof("post %d submitted by %v", post.ID, actor)

	s.notifyAdmins(ctx, &models.Notification{
		Kind:        models.NotificationPostSubmitted,
		PostID:      post.ID,
		UserID:      actor.ID,
		Actor:       actor.DisplayName(),
		Text:        post.TextContent,
		ImageFileID: post.ImageFileID,
	})
	return post, nil
}

func (s *Service) SubmitFeedback(ctx context.Context, actorTelegramID int64, req SubmitFeedbackRequest) (*models.Feedback, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	actor, err := s.activeActor(ctx, actorTelegramID)
	if err != nil {
		return nil, err
	}

	feedback, err := s.store.CreateFeedback(ctx, actor.ID, req.Message)
	if err != nil {
		return nil, fmt.Errorf("creating feedback: %w", err)
	}
	s.log.Infof("feedback %d submitted by %v", feedback.ID, actor)

	s.notifyAdmins(ctx, &models.Notification{
		Kind:       models.NotificationFeedbackSubmitted,
		FeedbackID: feedback.ID,
		UserID:     actor.ID,
		Actor:      actor.DisplayName(),
		Text:       feedback.Message,
	})
	return feedback, nil
}

func (s *Service) Approve(ctx context.Context, actorTelegramID, postID int64) (*models.Post, error) {
	return s.review(ctx, actorTelegramID, postID, models.PostStatusApproved, "")
}

func (s *Service) Reject(ctx context.Context, actorTelegramID int64, req RejectRequest) (*models.Post, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.review(ctx, actorTelegramID, req.PostID, models.PostStatusRejected, req.Reason)
}

func (s *Service) review(
	ctx context.Context,
	actorTelegramID int64,
	postID int64,
	status models.PostStatus,
	reason string,
) (*models.Post, error) {
	actor, err := s.RequireAdmin(ctx, actorTelegramID)
	if err != nil {
		return nil, err
	}

	post, err := s.store.TransitionPost(ctx, postID, status, actor.ID, reason)
	if err != nil {
		metrics.PostTransitions.WithLabelValues(string(status), transitionResult(err)).Inc()
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Warnf("%v tried to mark post %d %s: %v", actor, postID, status, err)
		}
		return nil, fmt.Errorf("reviewing post %d: %w", postID, err)
	}
	metrics.PostTransitions.WithLabelValues(string(status), "ok").Inc()
	s.log.Infof("post %d %s by %v", post.ID, status, actor)

	kind := models.NotificationPostApproved
	if status == models.PostStatusRejected {
		kind = models.NotificationPostRejected
	}
	s.notifyUser(ctx, post.UserID, &models.Notification{
		Kind:   kind,
		PostID: post.ID,
		Actor:  actor.DisplayName(),
		Reason: post.RejectionReason,
	})
	return post, nil
}

func (s *Service) RespondToFeedback(ctx context.Context, actorTelegramID int64, req RespondRequest) (*models.Feedback, error) {
	req.Response = strings.TrimSpace(req.Response)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	actor, err := s.RequireAdmin(ctx, actorTelegramID)
	if err != nil {
		return nil, err
	}

	feedback, err := s.store.RespondToFeedback(ctx, req.FeedbackID, actor.ID, req.Response)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Warnf("%v tried to answer feedback %d again", actor, req.FeedbackID)
		}
		return nil, fmt.Errorf("responding to feedback %d: %w", req.FeedbackID, err)
	}
	s.log.Infof("feedback %d answered by %v", feedback.ID, actor)

	s.notifyUser(ctx, feedback.UserID, &models.Notification{
		Kind:       models.NotificationFeedbackResponded,
		FeedbackID: feedback.ID,
		Actor:      actor.DisplayName(),
		Text:       req.Response,
		Reason:     feedback.Message,
	})
	return feedback, nil
}

func (s *Service) BlockUser(ctx context.Context, actorTelegramID int64, req StatusChangeRequest) (*models.User, error) {
	return s.changeStatus(ctx, actorTelegramID, req, models.UserStatusBlocked)
}

func (s *Service) UnblockUser(ctx context.Context, actorTelegramID int64, req StatusChangeRequest) (*models.User, error) {
	return s.changeStatus(ctx, actorTelegramID, req, models.UserStatusActive)
}

func (s *Service) changeStatus(
	ctx context.Context,
	actorTelegramID int64,
	req StatusChangeRequest,
	status models.UserStatus,
) (*models.User, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	actor, err := s.RequireAdmin(ctx, actorTelegramID)
	if err != nil {
		return nil, err
	}
	if actor.ID == req.UserID {
		return nil, fmt.Errorf("%w: cannot change own status", ErrForbidden)
	}

	user, err := s.store.SetUserStatus(ctx, req.UserID, status, actor.ID, req.Reason)
	if err != nil {
		return nil, fmt.Errorf("setting user %d %s: %w", req.UserID, status, err)
	}
	s.log.Infof("%v is now %s by %v: %s", user, status, actor, req.Reason)

	kind := models.NotificationUserBlocked
	if status == models.UserStatusActive {
		kind = models.NotificationUserUnblocked
	}
	s.notify(ctx, &models.Notification{
		Recipient: user.TelegramID,
		Kind:      kind,
		UserID:    user.ID,
		Actor:     actor.DisplayName(),
		Reason:    req.Reason,
	})
	return user, nil
}

func (s *Service) notifyUser(ctx context.Context, userID int64, n *models.Notification) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.log.Errorf("failed to resolve recipient %d for %s: %v", userID, n.Kind, err)
		return
	}
	n.Recipient = user.TelegramID
	n.UserID = user.ID
	s.notify(ctx, n)
}

func (s *Service) notifyAdmins(ctx context.Context, n *models.Notification) {
	ids, err := s.admins.AdminTelegramIDs(ctx)
	if err != nil {
		s.log.Errorf("failed to list admins for %s: %v", n.Kind, err)
		return
	}
	for _, id := range ids {
		copied := *n
		copied.Recipient = id
		s.notify(ctx, &copied)
	}
}

func (s *Service) notify(ctx context.Context, n *models.Notification) {
	err := s.notifier.Notify(ctx, n)
	metrics.Notifications.WithLabelValues(string(n.Kind), metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warnf("failed to deliver %v: %v", n, err)
	}
}

func transitionResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
