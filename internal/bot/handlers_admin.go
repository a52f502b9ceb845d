package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/C4T-BuT-S4D/predlozhka/internal/broadcast"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/moderation"
	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

const (
	// pendingPageSize caps how many review cards one button press sends.
	pendingPageSize  = 20
	broadcastTimeout = 30 * time.Minute
	maxBroadcastText = 4000
	captionReserve   = 64
)

func (b *Bot) requireAdmin(uc *UpdateContext) error {
	_, err := b.service.RequireAdmin(uc, uc.ActorTelegramID())
	return err
}

func (b *Bot) HandleAdminPanel(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	return uc.Reply(adminHelpText, adminKeyboard())
}

func commandID(uc *UpdateContext, usage string) (int64, error) {
	args := uc.TC().Args()
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: usage %s", moderation.ErrValidation, usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", moderation.ErrValidation, args[0])
	}
	return id, nil
}

func callbackID(uc *UpdateContext) (int64, error) {
	id, err := parseCallbackID(uc.TC().Data())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", moderation.ErrValidation, err)
	}
	return id, nil
}

func (b *Bot) answerCallback(uc *UpdateContext, text string) {
	if err := uc.TC().Respond(&telebot.CallbackResponse{Text: text}); err != nil {
		uc.L().Warnf("failed to answer callback: %v", err)
	}
}

// clearButtons drops the inline keyboard of the message a callback came from.
func (b *Bot) clearButtons(uc *UpdateContext) {
	msg := uc.TC().Message()
	if msg == nil {
		return
	}
	if _, err := b.api.EditReplyMarkup(msg, nil); err != nil {
		uc.L().Warnf("failed to clear buttons: %v", err)
	}
}

func (b *Bot) showUsers(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	users, err := b.store.ListUsers(uc)
	if err != nil {
		return err
	}
	return uc.ReplyLong(renderUserList(users), adminKeyboard())
}

func (b *Bot) HandleUserProfile(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	userID, err := commandID(uc, "/user ID")
	if err != nil {
		return err
	}

	user, err := b.store.GetUser(uc, userID)
	if err != nil {
		return err
	}
	blocks, err := b.store.ListBlockRecords(uc, userID)
	if err != nil {
		return err
	}
	return uc.Reply(renderUserProfile(user, blocks), userProfileKeyboard(user))
}

func (b *Bot) HandlePostDetails(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	postID, err := commandID(uc, "/post ID")
	if err != nil {
		return err
	}

	post, err := b.store.GetPostWithDetails(uc, postID)
	if err != nil {
		return err
	}

	var markup *telebot.ReplyMarkup
	if post.Status == models.PostStatusPending {
		markup = postActionsKeyboard(post.ID)
	}
	return b.sendPostCard(uc, post, markup)
}

func (b *Bot) showPending(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	posts, err := b.store.ListPostsByStatus(uc, models.PostStatusPending)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return uc.Reply("ℹ️ Нет постов, ожидающих модерации.", adminKeyboard())
	}

	shown := posts
	if len(shown) > pendingPageSize {
		shown = shown[:pendingPageSize]
	}
	for _, p := range shown {
		if err := b.sendPostCard(uc, p, postActionsKeyboard(p.ID)); err != nil {
			return fmt.Errorf("sending post %d: %w", p.ID, err)
		}
	}
	return uc.Reply(
		fmt.Sprintf("Показано %d из %d. Профиль автора: /user ID", len(shown), len(posts)),
		adminKeyboard(),
	)
}

func (b *Bot) showPostsByStatus(uc *UpdateContext, status models.PostStatus) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	posts, err := b.store.ListPostsByStatus(uc, status)
	if err != nil {
		return err
	}
	return uc.ReplyLong(renderPostList(status, posts), adminKeyboard())
}

func (b *Bot) showPendingFeedback(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	items, err := b.store.ListPendingFeedback(uc)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return uc.Reply("ℹ️ Нет новых сообщений.", adminKeyboard())
	}
	for _, f := range items {
		if err := uc.Reply(renderFeedback(f), feedbackKeyboard(f.ID)); err != nil {
			return fmt.Errorf("sending feedback %d: %w", f.ID, err)
		}
	}
	return nil
}

func (b *Bot) HandleApprove(uc *UpdateContext) error {
	postID, err := callbackID(uc)
	if err != nil {
		return err
	}

	if _, err := b.service.Approve(uc, uc.ActorTelegramID(), postID); err != nil {
		if isStale(err) {
			b.clearButtons(uc)
		}
		return err
	}
	b.answerCallback(uc, "✅ Пост одобрен!")
	b.clearButtons(uc)
	return nil
}

func (b *Bot) HandleRejectStart(uc *UpdateContext) error {
	postID, err := callbackID(uc)
	if err != nil {
		return err
	}
	if err := b.requireAdmin(uc); err != nil {
		return err
	}

	post, err := b.store.GetPostWithDetails(uc, postID)
	if err != nil {
		return err
	}
	if post.Status != models.PostStatusPending {
		b.clearButtons(uc)
		return fmt.Errorf("%w: post %d is %s", moderation.ErrInvalidTransition, post.ID, post.Status)
	}

	if _, err := b.sessions.Start(uc, uc.ActorTelegramID(), session.Interaction{
		Kind:   session.KindAwaitingRejectReason,
		PostID: post.ID,
	}); err != nil {
		return err
	}
	b.answerCallback(uc, "")
	return uc.Reply(fmt.Sprintf("✏️ Укажите причину отклонения поста #%d:", post.ID), cancelKeyboard())
}

func (b *Bot) finishReject(uc *UpdateContext, in *session.Interaction, reason string) error {
	post, err := b.service.Reject(uc, uc.ActorTelegramID(), moderation.RejectRequest{
		PostID: in.PostID,
		Reason: reason,
	})
	if err != nil {
		return b.keepOnInvalid(uc, err, "Причина должна быть непустой и не длиннее 1000 символов.")
	}
	if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
		return err
	}
	return uc.Reply(fmt.Sprintf("✅ Пост #%d отклонен! Пользователь уведомлен.", post.ID), adminKeyboard())
}

// HandleStatusStart asks for the reason of a block or unblock.
func (b *Bot) HandleStatusStart(kind session.Kind) handlerFunc {
	return func(uc *UpdateContext) error {
		userID, err := callbackID(uc)
		if err != nil {
			return err
		}
		if err := b.requireAdmin(uc); err != nil {
			return err
		}

		user, err := b.store.GetUser(uc, userID)
		if err != nil {
			return err
		}
		blocking := kind == session.KindAwaitingBlockReason
		if user.IsBlocked() == blocking {
			b.clearButtons(uc)
			return fmt.Errorf("%w: %v is already %s", moderation.ErrInvalidTransition, user, user.Status)
		}

		if _, err := b.sessions.Start(uc, uc.ActorTelegramID(), session.Interaction{
			Kind:   kind,
			UserID: user.ID,
		}); err != nil {
			return err
		}
		b.answerCallback(uc, "")

		prompt := "✏️ Введите причину разблокировки %s:"
		if blocking {
			prompt = "✏️ Введите причину блокировки %s:"
		}
		return uc.Reply(fmt.Sprintf(prompt, userHandle(user)), cancelKeyboard())
	}
}

func (b *Bot) finishStatusChange(uc *UpdateContext, in *session.Interaction, reason string) error {
	req := moderation.StatusChangeRequest{UserID: in.UserID, Reason: reason}

	var (
		user *models.User
		err  error
		done string
	)
	if in.Kind == session.KindAwaitingBlockReason {
		user, err = b.service.BlockUser(uc, uc.ActorTelegramID(), req)
		done = "✅ Пользователь %s заблокирован."
	} else {
		user, err = b.service.UnblockUser(uc, uc.ActorTelegramID(), req)
		done = "✅ Пользователь %s разблокирован."
	}
	if err != nil {
		return b.keepOnInvalid(uc, err, "Причина должна быть непустой и не длиннее 1000 символов.")
	}
	if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
		return err
	}
	return uc.Reply(fmt.Sprintf(done, userHandle(user)), adminKeyboard())
}

func (b *Bot) HandleRespondStart(uc *UpdateContext) error {
	feedbackID, err := callbackID(uc)
	if err != nil {
		return err
	}
	if err := b.requireAdmin(uc); err != nil {
		return err
	}

	feedback, err := b.store.GetFeedback(uc, feedbackID)
	if err != nil {
		return err
	}
	if !feedback.IsPending() {
		b.clearButtons(uc)
		return fmt.Errorf("%w: feedback %d is already answered", moderation.ErrInvalidTransition, feedback.ID)
	}

	if _, err := b.sessions.Start(uc, uc.ActorTelegramID(), session.Interaction{
		Kind:       session.KindAwaitingFeedbackResponse,
		FeedbackID: feedback.ID,
	}); err != nil {
		return err
	}
	b.answerCallback(uc, "")
	return uc.Reply(fmt.Sprintf("✏️ Введите ответ на сообщение #%d:", feedback.ID), cancelKeyboard())
}

func (b *Bot) finishRespond(uc *UpdateContext, in *session.Interaction, response string) error {
	if _, err := b.service.RespondToFeedback(uc, uc.ActorTelegramID(), moderation.RespondRequest{
		FeedbackID: in.FeedbackID,
		Response:   response,
	}); err != nil {
		return b.keepOnInvalid(uc, err, "Ответ должен быть непустым и не длиннее 4000 символов.")
	}
	if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
		return err
	}
	return uc.Reply("✅ Ответ отправлен пользователю.", adminKeyboard())
}

func (b *Bot) startBroadcast(uc *UpdateContext) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}
	if _, err := b.sessions.Start(uc, uc.ActorTelegramID(), session.Interaction{Kind: session.KindAwaitingBroadcastContent}); err != nil {
		return err
	}
	return uc.Reply("✍️ Отправьте текст рассылки или изображение с подписью.", cancelKeyboard())
}

func (b *Bot) continueBroadcastContent(uc *UpdateContext, in *session.Interaction, text, imageFileID string) error {
	if err := b.requireAdmin(uc); err != nil {
		return err
	}

	limit := maxBroadcastText
	if imageFileID != "" {
		// The caption also carries the broadcast header.
		limit = maxCaptionLength - captionReserve
	}
	if text == "" && imageFileID == "" {
		return uc.Reply("❌ Рассылка должна содержать текст или изображение.", cancelKeyboard())
	}
	if utf8.RuneCountInString(text) > limit {
		return uc.Reply(fmt.Sprintf("❌ Текст слишком длинный, максимум %d символов.", limit), cancelKeyboard())
	}

	in.Text = text
	in.ImageFileID = imageFileID
	if err := b.sessions.Advance(uc, uc.ActorTelegramID(), in, session.KindAwaitingBroadcastConfirm); err != nil {
		return err
	}

	preview := renderBroadcastPreview(text, imageFileID != "")
	if imageFileID == "" {
		return uc.Reply(preview, confirmKeyboard())
	}
	return uc.TC().Send(&telebot.Photo{
		File:    telebot.File{FileID: imageFileID},
		Caption: truncate(preview, maxCaptionLength),
	}, telebot.ModeHTML, confirmKeyboard())
}

func (b *Bot) finishBroadcast(uc *UpdateContext, in *session.Interaction, text string) error {
	if text != btnConfirmSend {
		return uc.Reply(fmt.Sprintf("Нажмите «%s» или «%s».", btnConfirmSend, btnCancel), confirmKeyboard())
	}

	actor, err := b.service.RequireAdmin(uc, uc.ActorTelegramID())
	if err != nil {
		return err
	}
	if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
		return err
	}

	msg := broadcast.Message{
		Text:        in.Text,
		ImageFileID: in.ImageFileID,
		Actor:       actor.DisplayName(),
	}
	chat := telebot.ChatID(uc.ActorTelegramID())

	b.background.Add(1)
	go func() {
		defer b.background.Done()
		b.runBroadcast(chat, msg)
	}()

	return uc.Reply("⏳ Начинаю рассылку, статистика придет по завершении.", adminKeyboard())
}

func (b *Bot) runBroadcast(chat telebot.ChatID, msg broadcast.Message) {
	logger := logrus.WithField("component", "broadcast")

	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	res, err := b.broadcaster.Send(ctx, msg)
	if err != nil {
		logger.Errorf("broadcast failed: %v", err)
		if res == nil {
			if _, err := b.api.Send(chat, "❌ Рассылка не удалась."); err != nil {
				logger.Errorf("failed to report broadcast failure: %v", err)
			}
			return
		}
	}
	if _, err := b.api.Send(chat, renderBroadcastResult(res), telebot.ModeHTML); err != nil {
		logger.Errorf("failed to send broadcast statistics: %v", err)
	}
}
