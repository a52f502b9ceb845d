package bot

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/moderation"
	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"gopkg.in/telebot.v4"
)

// skipText is what users send at the text step to post an image only.
const skipText = "."

func (b *Bot) HandleStart(uc *UpdateContext) error {
	if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
		return err
	}
	return uc.Reply(welcomeText, mainKeyboard(uc.Actor().IsAdmin()))
}

func (b *Bot) HandleHelp(uc *UpdateContext) error {
	return uc.Reply(helpText)
}

func (b *Bot) HandleID(uc *UpdateContext) error {
	return uc.Reply(fmt.Sprintf("🆔 Ваш ID: <code>%d</code>", uc.ActorTelegramID()))
}

func (b *Bot) HandleCancel(uc *UpdateContext) error {
	return b.backToMenu(uc, "Действие отменено.")
}

func (b *Bot) backToMenu(uc *UpdateContext, text string) error {
	if err := b.sessions.Finish(uc, uc.ActorTelegramID()); err != nil {
		return err
	}
	return uc.Reply(text, mainKeyboard(uc.Actor().IsAdmin()))
}

// HandleText routes menu buttons first, then free text to the pending
// interaction. Pressing a menu button abandons whatever was in progress.
func (b *Bot) HandleText(uc *UpdateContext) error {
	text := strings.TrimSpace(uc.TC().Text())

	switch text {
	case btnCancel:
		return b.HandleCancel(uc)
	case btnMainMenu:
		return b.backToMenu(uc, "Вы вернулись в главное меню.")
	case btnSubmitPost:
		return b.startPost(uc)
	case btnContact:
		return b.startFeedback(uc)
	case btnMyPosts:
		return b.showMyPosts(uc)
	case btnStats:
		return uc.Reply("📊 Выберите тип статистики:", statisticsKeyboard())
	case btnAdminPanel:
		return b.HandleAdminPanel(uc)
	case btnUsers:
		return b.showUsers(uc)
	case btnPending:
		return b.showPending(uc)
	case btnApproved:
		return b.showPostsByStatus(uc, models.PostStatusApproved)
	case btnRejected:
		return b.showPostsByStatus(uc, models.PostStatusRejected)
	case btnFeedback:
		return b.showPendingFeedback(uc)
	case btnBroadcast:
		return b.startBroadcast(uc)
	}

	in, err := b.sessions.Current(uc, uc.ActorTelegramID())
	if errors.Is(err, session.ErrNoInteraction) {
		return uc.Reply("Не понимаю 🤔 Воспользуйтесь кнопками меню.", mainKeyboard(uc.Actor().IsAdmin()))
	}
	if err != nil {
		return err
	}
	uc.L().Debugf("continuing %v", in)

	switch in.Kind {
	case session.KindAwaitingPostText:
		return b.continuePostText(uc, in, text)
	case session.KindAwaitingPostImage:
		return uc.Reply("❌ Пожалуйста, отправьте изображение для поста.", cancelKeyboard())
	case session.KindAwaitingFeedback:
		return b.finishFeedback(uc, text)
	case session.KindAwaitingRejectReason:
		return b.finishReject(uc, in, text)
	case session.KindAwaitingBlockReason, session.KindAwaitingUnblockReason:
		return b.finishStatusChange(uc, in, text)
	case session.KindAwaitingFeedbackResponse:
		return b.finishRespond(uc, in, text)
	case session.KindAwaitingBroadcastContent:
		return b.continueBroadcastContent(uc, in, text, "")
	case session.KindAwaitingBroadcastConfirm:
		return b.finishBroadcast(uc, in, text)
	default:
		return fmt.Errorf("unexpected interaction %v", in)
	}
}

func (b *Bot) HandlePhoto(uc *UpdateContext) error {
	msg := uc.TC().Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	caption := strings.TrimSpace(msg.Caption)

	in, err := b.sessions.Current(uc, uc.ActorTelegramID())
	if errors.Is(err, session.ErrNoInteraction) {
		return uc.Reply(fmt.Sprintf("Чтобы предложить пост, нажмите «%s».", btnSubmitPost), mainKeyboard(uc.Actor().IsAdmin()))
	}
	if err != nil {
		return err
	}

	switch in.Kind {
	case session.KindAwaitingPostText:
		return b.finishPost(uc, caption, msg.Photo.FileID)
	case session.KindAwaitingPostImage:
		text := in.Text
		if text == "" {
			text = caption
		}
		return b.finishPost(uc, text, msg.Photo.FileID)
	case session.KindAwaitingBroadcastContent:
		return b.continueBroadcastContent(uc, in, caption, msg.Photo.FileID)
	default:
		return uc.Reply("❌ Сейчас нужен текст, а не изображение.", cancelKeyboard())
	}
}

// keepOnInvalid leaves the interaction in place when the input was rejected
// by validation, so the actor can simply try again.
func (b *Bot) keepOnInvalid(uc *UpdateContext, err error, prompt string) error {
	if errors.Is(err, moderation.ErrValidation) {
		return uc.Reply("❌ "+prompt, cancelKeyboard())
	}
	if ferr := b.sessions.Finish(uc, uc.ActorTelegramID()); ferr != nil {
		uc.L().Warnf("failed to finish interaction: %v", ferr)
	}
	return err
}

func (b *Bot) startPost(uc *UpdateContext) error {
	if _, err := b.sessions.Start(uc, uc.ActorTelegramID(), session.Interaction{Kind: session.KindAwaitingPostText}); err != nil {
		return err
	}
	return uc.Reply(
		"✍️ Напишите текст для поста.\n"+
			"Если текст не нужен, отправьте точку, или сразу пришлите изображение.",
		cancelKeyboard(),
	)
}

func (b *Bot) continuePostText(uc *UpdateContext, in *session.Interaction, text string) error {
	if text == skipText {
		text = ""
	}
	if utf8.RuneCountInString(text) > maxCaptionLength {
		return uc.Reply(fmt.Sprintf("❌ Текст слишком длинный, максимум %d символов.", maxCaptionLength), cancelKeyboard())
	}

	in.Text = text
	if err := b.sessions.Advance(uc, uc.ActorTelegramID(), in, session.KindAwaitingPostImage); err != nil {
		return err
	}
	return uc.Reply("🖼 Теперь отправьте изображение для поста.", cancelKeyboard())
}

func (b *Bot) finishPost(uc *UpdateContext, text, imageFileID string) error {
	post, err := b.service.SubmitPost(uc, uc.ActorTelegramID(), moderation.SubmitPostRequest{
		Text:        text,
		ImageFileID: imageFileID,
	})
	if err != nil {
		return b.keepOnInvalid(uc, err, "Не получилось принять пост, проверьте текст и изображение.")
	}
	return b.backToMenu(uc, fmt.Sprintf("✅ Ваш пост #%d отправлен на модерацию!", post.ID))
}

func (b *Bot) startFeedback(uc *UpdateContext) error {
	if _, err := b.sessions.Start(uc, uc.ActorTelegramID(), session.Interaction{Kind: session.KindAwaitingFeedback}); err != nil {
		return err
	}
	return uc.Reply(
		"✍️ Напишите ваше сообщение администрации.\nОпишите вопрос или проблему подробно.",
		cancelKeyboard(),
	)
}

func (b *Bot) finishFeedback(uc *UpdateContext, text string) error {
	if _, err := b.service.SubmitFeedback(uc, uc.ActorTelegramID(), moderation.SubmitFeedbackRequest{Message: text}); err != nil {
		return b.keepOnInvalid(uc, err, "Сообщение должно быть непустым и не длиннее 4000 символов.")
	}
	return b.backToMenu(uc, "✅ Ваше сообщение отправлено администрации!\nМы ответим вам в ближайшее время.")
}

func (b *Bot) showMyPosts(uc *UpdateContext) error {
	posts, err := b.store.ListPostsByOwner(uc, uc.Actor().ID)
	if err != nil {
		return err
	}
	return uc.ReplyLong(renderMyPosts(posts))
}

func (b *Bot) HandleTop(uc *UpdateContext) error {
	metric, err := models.ParseCounter(uc.TC().Data())
	if err != nil {
		return fmt.Errorf("%w: %v", moderation.ErrValidation, err)
	}

	scores, err := b.store.TopUsers(uc, metric, b.config.TopUsersLimit)
	if err != nil {
		return err
	}
	if err := uc.TC().Respond(); err != nil {
		uc.L().Warnf("failed to answer callback: %v", err)
	}
	return uc.Reply(renderTop(metric, scores))
}

// sendPostCard shows the post with its image when it has one.
func (b *Bot) sendPostCard(uc *UpdateContext, p *models.Post, markup *telebot.ReplyMarkup) error {
	opts := []interface{}{telebot.ModeHTML}
	if markup != nil {
		opts = append(opts, markup)
	}
	if p.ImageFileID == "" {
		return uc.TC().Send(renderPostCard(p), opts...)
	}
	return uc.TC().Send(&telebot.Photo{
		File:    telebot.File{FileID: p.ImageFileID},
		Caption: renderPostCard(p),
	}, opts...)
}
