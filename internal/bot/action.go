package bot

import (
	"fmt"
	"strconv"

	"gopkg.in/telebot.v4"
)

// CallbackAction is the unique part of inline button data. It is registered
// directly as a telebot endpoint, the payload after it is an entity id.
type CallbackAction string

const (
	CallbackActionApprovePost     CallbackAction = "approve_post"
	CallbackActionRejectPost      CallbackAction = "reject_post"
	CallbackActionBlockUser       CallbackAction = "block_user"
	CallbackActionUnblockUser     CallbackAction = "unblock_user"
	CallbackActionRespondFeedback CallbackAction = "respond_feedback"
	CallbackActionTop             CallbackAction = "top"
)

func (a CallbackAction) String() string {
	return string(a)
}

func (a CallbackAction) CallbackUnique() string {
	return "\f" + a.String()
}

func (a CallbackAction) Button(m *telebot.ReplyMarkup, text string, payload string) telebot.Btn {
	return m.Data(text, a.String(), payload)
}

func (a CallbackAction) IDButton(m *telebot.ReplyMarkup, text string, id int64) telebot.Btn {
	return a.Button(m, text, strconv.FormatInt(id, 10))
}

func parseCallbackID(data string) (int64, error) {
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid callback id %q", data)
	}
	return id, nil
}
