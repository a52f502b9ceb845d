// Package bot is the Telegram face of the moderation service: commands,
// reply keyboards, inline review buttons and multi-step interactions.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/broadcast"
	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/metrics"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/moderation"
	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"gopkg.in/telebot.v4"
)

// Store is the read side the bot renders views from.
type Store interface {
	UpdateLastUpdate(ctx context.Context, updateID int) error

	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListBlockRecords(ctx context.Context, userID int64) ([]*models.BlockRecord, error)

	GetPostWithDetails(ctx context.Context, postID int64) (*models.Post, error)
	ListPostsByStatus(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	ListPostsByOwner(ctx context.Context, ownerID int64) ([]*models.Post, error)

	GetFeedback(ctx context.Context, feedbackID int64) (*models.Feedback, error)
	ListPendingFeedback(ctx context.Context) ([]*models.Feedback, error)

	TopUsers(ctx context.Context, metric models.Counter, limit int) ([]*models.UserScore, error)
}

// API is the part of the Telegram client used outside of a handler's reply.
type API interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	EditReplyMarkup(msg telebot.Editable, markup *telebot.ReplyMarkup) (*telebot.Message, error)
}

type Registrar interface {
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
}

type Bot struct {
	config      *config.Config
	service     *moderation.Service
	store       Store
	sessions    *session.Manager
	broadcaster *broadcast.Broadcaster
	api         API

	// Broadcasts outlive the update that started them.
	background sync.WaitGroup
}

func New(
	cfg *config.Config,
	service *moderation.Service,
	store Store,
	sessions *session.Manager,
	broadcaster *broadcast.Broadcaster,
	api API,
) *Bot {
	return &Bot{
		config:      cfg,
		service:     service,
		store:       store,
		sessions:    sessions,
		broadcaster: broadcaster,
		api:         api,
	}
}

type handlerFunc func(uc *UpdateContext) error

func (b *Bot) Register(r Registrar) {
	r.Handle("/start", b.wrap("start", b.HandleStart))
	r.Handle("/help", b.wrap("help", b.HandleHelp))
	r.Handle("/id", b.wrap("id", b.HandleID))
	r.Handle("/cancel", b.wrap("cancel", b.HandleCancel))
	r.Handle("/admin", b.wrap("admin", b.HandleAdminPanel))
	r.Handle("/user", b.wrap("user", b.HandleUserProfile))
	r.Handle("/post", b.wrap("post", b.HandlePostDetails))

	r.Handle(telebot.OnText, b.wrap("text", b.HandleText))
	r.Handle(telebot.OnPhoto, b.wrap("photo", b.HandlePhoto))

	r.Handle(CallbackActionApprovePost, b.wrap("approve_post", b.HandleApprove))
	r.Handle(CallbackActionRejectPost, b.wrap("reject_post", b.HandleRejectStart))
	r.Handle(CallbackActionBlockUser, b.wrap("block_user", b.HandleStatusStart(session.KindAwaitingBlockReason)))
	r.Handle(CallbackActionUnblockUser, b.wrap("unblock_user", b.HandleStatusStart(session.KindAwaitingUnblockReason)))
	r.Handle(CallbackActionRespondFeedback, b.wrap("respond_feedback", b.HandleRespondStart))
	r.Handle(CallbackActionTop, b.wrap("top", b.HandleTop))
}

// wrap runs every handler under a timeout with the sender resolved to a
// registered user. Blocked users are refused here, before any handler.
func (b *Bot) wrap(name string, h handlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), b.config.BotHandleTimeout)
		defer cancel()

		uc := NewUpdateContext(ctx, c)
		uc.L().Debugf("received %s update", name)

		if err := b.store.UpdateLastUpdate(uc, c.Update().ID); err != nil {
			uc.L().Errorf("failed to update last update: %v", err)
		}

		if c.Chat() == nil || c.Chat().Type != telebot.ChatPrivate || c.Sender() == nil {
			uc.L().Debugf("ignoring update outside of a private chat")
			return nil
		}

		err := b.handle(uc, name, h)

		metrics.BotUpdates.WithLabelValues(name, metrics.Result(err)).Inc()
		metrics.BotUpdateDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err != nil {
			b.reportError(uc, name, err)
		}
		return nil
	}
}

func (b *Bot) handle(uc *UpdateContext, name string, h handlerFunc) error {
	actor, err := b.resolveActor(uc, name == "start")
	if err != nil {
		return fmt.Errorf("resolving sender: %w", err)
	}
	uc.setActor(actor)

	if actor.IsBlocked() {
		if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
			uc.L().Warnf("failed to drop interaction of blocked user: %v", err)
		}
		return moderation.ErrBlocked
	}

	return h(uc)
}

// resolveActor loads the sender, registering unknown ones on the fly.
// /start always re-registers to refresh the name.
func (b *Bot) resolveActor(uc *UpdateContext, refresh bool) (*models.User, error) {
	sender := uc.Sender()
	if !refresh {
		user, err := b.service.Actor(uc, sender.ID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, moderation.ErrNotFound) {
			return nil, err
		}
	}

	fullName := sender.FirstName
	if sender.LastName != "" {
		fullName += " " + sender.LastName
	}
	return b.service.Register(uc, sender.ID, sender.Username, fullName)
}

func (b *Bot) reportError(uc *UpdateContext, name string, err error) {
	switch {
	case errors.Is(err, moderation.ErrBlocked),
		errors.Is(err, moderation.ErrForbidden),
		errors.Is(err, moderation.ErrInvalidTransition),
		errors.Is(err, moderation.ErrValidation),
		errors.Is(err, moderation.ErrNotFound):
		uc.L().Infof("%s refused: %v", name, err)
	default:
		uc.L().Errorf("failed to handle %s: %v", name, err)
	}

	text := userMessage(err)
	if uc.TC().Callback() != nil {
		if rerr := uc.TC().Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true}); rerr != nil {
			uc.L().Warnf("failed to answer callback: %v", rerr)
		}
		return
	}
	if rerr := uc.Reply(text); rerr != nil {
		uc.L().Warnf("failed to send error reply: %v", rerr)
	}
}

// Wait blocks until background broadcasts finish.
func (b *Bot) Wait() {
	b.background.Wait()
}
