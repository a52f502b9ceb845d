package bot

import (
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"gopkg.in/telebot.v4"
)

const (
	btnSubmitPost = "📤 Предложить пост"
	btnContact    = "📨 Связь с администрацией"
	btnMyPosts    = "📜 История моих постов"
	btnStats      = "📊 Статистика"
	btnAdminPanel = "👨‍💻 Админ-панель"

	btnUsers     = "👥 Пользователи"
	btnPending   = "📝 Нерассмотренные посты"
	btnApproved  = "✅ Одобренные посты"
	btnRejected  = "❌ Отклоненные посты"
	btnFeedback  = "📩 Обратная связь"
	btnBroadcast = "📢 Массовая рассылка"
	btnMainMenu  = "🔙 Главное меню"

	btnCancel      = "❌ Отмена"
	btnConfirmSend = "✅ Да, отправить"
)

func mainKeyboard(isAdmin bool) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true}
	rows := []telebot.Row{
		m.Row(m.Text(btnSubmitPost)),
		m.Row(m.Text(btnContact)),
		m.Row(m.Text(btnMyPosts)),
		m.Row(m.Text(btnStats)),
	}
	if isAdmin {
		rows = append(rows, m.Row(m.Text(btnAdminPanel)))
	}
	m.Reply(rows...)
	return m
}

func adminKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(
		m.Row(m.Text(btnUsers)),
		m.Row(m.Text(btnPending)),
		m.Row(m.Text(btnApproved), m.Text(btnRejected)),
		m.Row(m.Text(btnFeedback)),
		m.Row(m.Text(btnBroadcast)),
		m.Row(m.Text(btnMainMenu)),
	)
	return m
}

func cancelKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(m.Row(m.Text(btnCancel)))
	return m
}

func confirmKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(m.Row(m.Text(btnConfirmSend)), m.Row(m.Text(btnCancel)))
	return m
}

func postActionsKeyboard(postID int64) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	m.Inline(m.Row(
		CallbackActionApprovePost.IDButton(m, "✅ Одобрить", postID),
		CallbackActionRejectPost.IDButton(m, "❌ Отклонить", postID),
	))
	return m
}

func userProfileKeyboard(u *models.User) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	if u.IsBlocked() {
		m.Inline(m.Row(CallbackActionUnblockUser.IDButton(m, "🔓 Разблокировать", u.ID)))
	} else {
		m.Inline(m.Row(CallbackActionBlockUser.IDButton(m, "🔒 Блокировать", u.ID)))
	}
	return m
}

func feedbackKeyboard(feedbackID int64) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	m.Inline(m.Row(CallbackActionRespondFeedback.IDButton(m, "✏️ Ответить", feedbackID)))
	return m
}

func statisticsKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	m.Inline(
		m.Row(
			CallbackActionTop.Button(m, "🏆 По одобренным", models.CounterApprovedPosts.String()),
			CallbackActionTop.Button(m, "💢 По отклоненным", models.CounterRejectedPosts.String()),
		),
		m.Row(
			CallbackActionTop.Button(m, "📤 По отправленным", models.CounterSubmittedPosts.String()),
		),
	)
	return m
}
