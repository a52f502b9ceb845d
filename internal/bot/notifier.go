package bot

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"gopkg.in/telebot.v4"
)

type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier delivers notification events as Telegram messages. Admin alerts
// carry the buttons to act on them right away.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Notify(ctx context.Context, ev *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := renderNotification(ev)
	opts := []interface{}{telebot.ModeHTML}
	switch ev.Kind {
	case models.NotificationPostSubmitted:
		opts = append(opts, postActionsKeyboard(ev.PostID))
	case models.NotificationFeedbackSubmitted:
		opts = append(opts, feedbackKeyboard(ev.FeedbackID))
	}

	var what interface{} = text
	if ev.ImageFileID != "" {
		what = &telebot.Photo{
			File:    telebot.File{FileID: ev.ImageFileID},
			Caption: truncate(text, maxCaptionLength),
		}
	}

	if _, err := n.sender.Send(telebot.ChatID(ev.Recipient), what, opts...); err != nil {
		return fmt.Errorf("sending %s to %d: %w", ev.Kind, ev.Recipient, err)
	}
	return nil
}
