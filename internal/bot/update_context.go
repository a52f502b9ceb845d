package bot

import (
	"context"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type UpdateContext struct {
	context.Context
	tc    telebot.Context
	log   *logrus.Entry
	actor *models.User
}

func NewUpdateContext(c context.Context, tc telebot.Context) *UpdateContext {
	fields := logrus.Fields{
		"update_id": tc.Update().ID,
	}
	if tc.Chat() != nil {
		fields["chat_id"] = tc.Chat().ID
	}
	if tc.Sender() != nil {
		fields["sender_id"] = tc.Sender().ID
		fields["sender_username"] = tc.Sender().Username
	}

	return &UpdateContext{
		Context: c,
		tc:      tc,
		log:     logrus.WithFields(fields),
	}
}

func (uc *UpdateContext) L() *logrus.Entry {
	return uc.log
}

func (uc *UpdateContext) TC() telebot.Context {
	return uc.tc
}

func (uc *UpdateContext) Sender() *telebot.User {
	return uc.tc.Sender()
}

// Actor is the registered user behind the update, set before handlers run.
func (uc *UpdateContext) Actor() *models.User {
	return uc.actor
}

func (uc *UpdateContext) setActor(u *models.User) {
	uc.actor = u
	uc.log = uc.log.WithField("actor_id", u.ID)
}

func (uc *UpdateContext) ActorTelegramID() int64 {
	return uc.tc.Sender().ID
}

// Reply sends HTML text to the chat the update came from.
func (uc *UpdateContext) Reply(text string, opts ...interface{}) error {
	return uc.tc.Send(text, append([]interface{}{telebot.ModeHTML}, opts...)...)
}

// ReplyLong splits text that does not fit one message on line boundaries.
// The options go with the last part.
func (uc *UpdateContext) ReplyLong(text string, opts ...interface{}) error {
	parts := splitMessage(text, maxMessageLength)
	for i, part := range parts {
		var err error
		if i == len(parts)-1 {
			err = uc.Reply(part, opts...)
		} else {
			err = uc.Reply(part)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
