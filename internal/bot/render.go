package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/C4T-BuT-S4D/predlozhka/internal/broadcast"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
)

const (
	maxMessageLength = 4096
	maxCaptionLength = 1024
	previewLength    = 100
	separator        = "────────────────────"
	textPrefix       = "📄 "
)

const welcomeText = `👋 <b>Добро пожаловать в предложку!</b>

📌 <b>Основные функции:</b>
📤 Предложить пост - создать публикацию
📨 Связь с администрацией - задать вопрос
📜 История постов - ваши публикации
📊 Статистика - активность пользователей

❗ <b>Требования к постам:</b>
- изображение обязательно
- текст по желанию`

const helpText = `ℹ️ <b>Справка по командам:</b>

/start - перезапустить бота
/help - показать эту справку
/id - узнать свой Telegram ID
/cancel - отменить текущее действие

📌 <b>Как предложить пост:</b>
1. Нажмите «📤 Предложить пост»
2. Напишите текст или отправьте точку, чтобы пропустить
3. Прикрепите изображение`

const adminHelpText = `👨‍💻 <b>Панель администратора</b>

/user ID - профиль пользователя
/post ID - детали поста`

func esc(s string) string {
	return html.EscapeString(s)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "неизвестно"
	}
	return t.Local().Format("02.01.2006 15:04")
}

func userHandle(u *models.User) string {
	if u == nil {
		return "неизвестно"
	}
	return esc(u.DisplayName())
}

func statusEmoji(s models.PostStatus) string {
	switch s {
	case models.PostStatusPending:
		return "⏳"
	case models.PostStatusApproved:
		return "✅"
	case models.PostStatusRejected:
		return "❌"
	default:
		return "❓"
	}
}

func statusTitle(s models.PostStatus) string {
	switch s {
	case models.PostStatusPending:
		return "на модерации"
	case models.PostStatusApproved:
		return "одобрен"
	case models.PostStatusRejected:
		return "отклонен"
	default:
		return string(s)
	}
}

func metricTitle(c models.Counter) string {
	switch c {
	case models.CounterApprovedPosts:
		return "🏆 Топ пользователей по одобренным постам"
	case models.CounterRejectedPosts:
		return "💢 Топ пользователей по отклоненным постам"
	case models.CounterSubmittedPosts:
		return "📤 Топ пользователей по отправленным постам"
	default:
		return c.String()
	}
}

func textOrPlaceholder(s string) string {
	if s == "" {
		return "<i>нет текста</i>"
	}
	return esc(s)
}

// renderPostCard is the caption shown to admins next to the post image.
func renderPostCard(p *models.Post) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆔 <b>Пост #%d</b> %s %s\n", p.ID, statusEmoji(p.Status), statusTitle(p.Status))
	fmt.Fprintf(&sb, "👤 Автор: %s (ID: %d)\n", userHandle(p.Owner), p.UserID)
	fmt.Fprintf(&sb, "📅 Дата: %s\n", formatTime(p.CreatedAt))
	if p.ReviewedAt != nil {
		fmt.Fprintf(&sb, "🔎 Модерация: %s", formatTime(*p.ReviewedAt))
		if p.Reviewer != nil {
			fmt.Fprintf(&sb, ", %s", userHandle(p.Reviewer))
		}
		sb.WriteString("\n")
	}
	if p.RejectionReason != "" {
		fmt.Fprintf(&sb, "📝 Причина отказа: %s\n", esc(p.RejectionReason))
	}

	// Text goes last and is the part cut to fit the caption.
	head := sb.String()
	budget := maxCaptionLength - utf8.RuneCountInString(head) - utf8.RuneCountInString(textPrefix)
	text := p.TextContent
	if text != "" && budget > 0 {
		text = truncate(text, budget)
	}
	return head + textPrefix + textOrPlaceholder(text)
}

func renderPostList(status models.PostStatus, posts []*models.Post) string {
	if len(posts) == 0 {
		return fmt.Sprintf("ℹ️ Нет постов со статусом «%s».", statusTitle(status))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 <b>Посты (%s): %d</b>\n\n", statusTitle(status), len(posts))
	for _, p := range posts {
		fmt.Fprintf(&sb, "🆔 /post %d\n👤 %s\n📅 %s\n%s\n", p.ID, userHandle(p.Owner), formatTime(p.CreatedAt), separator)
	}
	return sb.String()
}

func renderMyPosts(posts []*models.Post) string {
	if len(posts) == 0 {
		return "📭 У вас пока нет отправленных постов."
	}

	var sb strings.Builder
	sb.WriteString("📜 <b>История ваших постов:</b>\n\n")
	for _, p := range posts {
		fmt.Fprintf(&sb, "%s #%d - %s\n", statusEmoji(p.Status), p.ID, statusTitle(p.Status))
		fmt.Fprintf(&sb, "📅 %s\n", formatTime(p.CreatedAt))
		fmt.Fprintf(&sb, "📝 %s\n", textOrPlaceholder(truncate(p.TextContent, 50)))
		if p.Status == models.PostStatusRejected && p.RejectionReason != "" {
			fmt.Fprintf(&sb, "💬 %s\n", esc(p.RejectionReason))
		}
		sb.WriteString(separator + "\n")
	}
	return sb.String()
}

func userBadges(u *models.User) string {
	status := "🟢"
	if u.IsBlocked() {
		status = "🔴"
	}
	role := "👤"
	if u.IsAdmin() {
		role = "👑"
	}
	return status + role
}

func renderUserList(users []*models.User) string {
	if len(users) == 0 {
		return "ℹ️ Пользователей пока нет."
	}

	var sb strings.Builder
	sb.WriteString("👥 <b>Список пользователей:</b>\n\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "%s /user %d\n", userBadges(u), u.ID)
		fmt.Fprintf(&sb, "👤 %s\n", userHandle(u))
		fmt.Fprintf(&sb, "📅 Рег.: %s\n", formatTime(u.CreatedAt))
		fmt.Fprintf(&sb, "📊 Постов: %d | ✅ %d | ❌ %d\n", u.SubmittedPosts, u.ApprovedPosts, u.RejectedPosts)
		sb.WriteString(separator + "\n")
	}
	return sb.String()
}

func renderUserProfile(u *models.User, blocks []*models.BlockRecord) string {
	status := "🟢 Активен"
	if u.IsBlocked() {
		status = "🔴 Заблокирован"
	}
	role := "👤 Пользователь"
	if u.IsAdmin() {
		role = "👑 Админ"
	}

	var sb strings.Builder
	sb.WriteString("👤 <b>Профиль пользователя</b>\n\n")
	fmt.Fprintf(&sb, "🆔 ID: %d\n", u.ID)
	fmt.Fprintf(&sb, "📱 Telegram ID: <code>%d</code>\n", u.TelegramID)
	fmt.Fprintf(&sb, "👤 Имя: %s\n", esc(u.FullName))
	if u.Username != "" {
		fmt.Fprintf(&sb, "🔹 Ник: @%s\n", esc(u.Username))
	}
	fmt.Fprintf(&sb, "👥 Роль: %s\n", role)
	fmt.Fprintf(&sb, "🔹 Статус: %s\n", status)
	fmt.Fprintf(&sb, "📅 Регистрация: %s\n\n", formatTime(u.CreatedAt))
	sb.WriteString("📊 <b>Статистика:</b>\n")
	fmt.Fprintf(&sb, "📤 Отправлено: %d\n", u.SubmittedPosts)
	fmt.Fprintf(&sb, "✅ Одобрено: %d\n", u.ApprovedPosts)
	fmt.Fprintf(&sb, "❌ Отклонено: %d\n", u.RejectedPosts)

	if len(blocks) > 0 {
		fmt.Fprintf(&sb, "\n🔒 <b>Блокировки: %d</b>\n", len(blocks))
		for _, b := range blocks {
			fmt.Fprintf(&sb, "• %s: %s", formatTime(b.BlockedAt), esc(b.Reason))
			if b.UnblockedAt != nil {
				fmt.Fprintf(&sb, " (снята %s", formatTime(*b.UnblockedAt))
				if b.UnblockReason != nil {
					fmt.Fprintf(&sb, ": %s", esc(*b.UnblockReason))
				}
				sb.WriteString(")")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderFeedback(f *models.Feedback) string {
	return fmt.Sprintf(
		"📩 <b>Сообщение #%d</b>\n\n👤 От: %s\n📅 Дата: %s\n\n📝 Текст:\n%s",
		f.ID,
		userHandle(f.Sender),
		formatTime(f.CreatedAt),
		esc(f.Message),
	)
}

func renderTop(metric models.Counter, scores []*models.UserScore) string {
	if len(scores) == 0 {
		return "😕 Нет данных для отображения."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s:</b>\n\n", metricTitle(metric))
	for i, s := range scores {
		fmt.Fprintf(&sb, "%d. %s - %d пост(ов)\n", i+1, userHandle(s.User), s.Value)
	}
	return sb.String()
}

func renderBroadcastPreview(text string, hasImage bool) string {
	var sb strings.Builder
	sb.WriteString("📢 <b>Предпросмотр рассылки:</b>\n\n")
	if text != "" {
		fmt.Fprintf(&sb, "📝 Текст:\n%s\n\n", esc(text))
	}
	if hasImage {
		sb.WriteString("🖼 Приложено изображение\n\n")
	}
	sb.WriteString("Отправить всем активным пользователям?")
	return sb.String()
}

func renderBroadcastResult(res *broadcast.Result) string {
	return fmt.Sprintf(
		"📊 <b>Статистика рассылки:</b>\n\n👥 Всего пользователей: %d\n✅ Успешно отправлено: %d\n❌ Не удалось отправить: %d\n📈 Процент доставки: %d%%",
		res.Total,
		res.Delivered,
		res.Failed,
		res.DeliveryPercent(),
	)
}

// renderNotification is the text a recipient gets for an outbound event.
func renderNotification(n *models.Notification) string {
	switch n.Kind {
	case models.NotificationPostSubmitted:
		return fmt.Sprintf(
			"📨 <b>Новый пост на модерацию!</b>\n🆔 /post %d\n👤 От: %s\n📝 %s",
			n.PostID,
			esc(n.Actor),
			textOrPlaceholder(truncate(n.Text, previewLength)),
		)
	case models.NotificationPostApproved:
		return fmt.Sprintf(
			"ℹ️ Статус вашего поста #%d изменен:\n🔹 Новый статус: одобрен ✅\n👨‍💻 Модератор: %s",
			n.PostID,
			esc(n.Actor),
		)
	case models.NotificationPostRejected:
		return fmt.Sprintf(
			"ℹ️ Статус вашего поста #%d изменен:\n🔹 Новый статус: отклонен ❌\n👨‍💻 Модератор: %s\n📝 Причина: %s",
			n.PostID,
			esc(n.Actor),
			esc(n.Reason),
		)
	case models.NotificationFeedbackSubmitted:
		return fmt.Sprintf(
			"📩 <b>Новое сообщение от пользователя!</b>\n🆔 #%d\n👤 От: %s\n\n📝 %s",
			n.FeedbackID,
			esc(n.Actor),
			esc(truncate(n.Text, 300)),
		)
	case models.NotificationFeedbackResponded:
		return fmt.Sprintf(
			"📩 <b>Ответ от администрации</b> на ваше сообщение:\n<i>%s</i>\n\n%s",
			esc(truncate(n.Reason, previewLength)),
			esc(n.Text),
		)
	case models.NotificationUserBlocked:
		return fmt.Sprintf("❌ Вы были заблокированы!\nПричина: %s", esc(n.Reason))
	case models.NotificationUserUnblocked:
		return fmt.Sprintf("✅ Вы были разблокированы!\nПричина: %s", esc(n.Reason))
	case models.NotificationMassBroadcast:
		if n.Text == "" {
			return "🚨📢 <b>Массовая рассылка от администрации</b>"
		}
		return "🚨📢 <b>Массовая рассылка от администрации:</b>\n\n" + esc(n.Text)
	default:
		return esc(string(n.Kind))
	}
}

// splitMessage cuts text into parts of at most limit runes, preferring line
// breaks. A single line longer than limit is cut hard.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		size  int
	)
	flush := func() {
		if size > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		if size+len(runes) > limit {
			flush()
		}
		cur.WriteString(string(runes))
		size += len(runes)
	}
	flush()
	return parts
}
