package bot

import (
	"context"
	"strconv"
	"testing"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

func (h *harness) start(tids ...int64) {
	for _, tid := range tids {
		h.command(tid, "start", h.bot.HandleStart)
	}
}

func (h *harness) submitPost(tid int64, text string) *models.Post {
	h.t.Helper()

	h.text(tid, btnSubmitPost)
	h.text(tid, text)
	c := h.photo(tid, "img-"+text, "")
	require.Contains(h.t, c.lastText(), "отправлен на модерацию")

	owner, err := h.store.GetUserByTelegramID(context.Background(), tid)
	require.NoError(h.t, err)
	posts, err := h.store.ListPostsByOwner(context.Background(), owner.ID)
	require.NoError(h.t, err)
	require.NotEmpty(h.t, posts)
	return posts[0]
}

func strID(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestStartRegistersAndPromotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.command(adminTID, "start", h.bot.HandleStart)
	assert.Contains(t, c.lastText(), "Добро пожаловать")
	markup := c.sent[0].markup()
	require.NotNil(t, markup)
	assert.Len(t, markup.ReplyKeyboard, 5, "admins see the panel button")

	c = h.command(userTID, "start", h.bot.HandleStart)
	assert.Len(t, c.sent[0].markup().ReplyKeyboard, 4)

	admin, err := h.store.GetUserByTelegramID(ctx, adminTID)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "u1", admin.Username)

	state, err := h.store.GetOrCreateGlobalState(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.updateID, state.LastUpdateID)
}

func TestUnknownSenderIsRegisteredOnTheFly(t *testing.T) {
	h := newHarness(t)

	c := h.command(userTID, "id", h.bot.HandleID)
	assert.Contains(t, c.lastText(), "<code>100</code>")

	_, err := h.store.GetUserByTelegramID(context.Background(), userTID)
	assert.NoError(t, err)
}

func TestGroupChatsAreIgnored(t *testing.T) {
	h := newHarness(t)

	c := h.context(userTID)
	c.chat.Type = telebot.ChatGroup
	c.message = &telebot.Message{Text: btnSubmitPost}
	h.run("text", h.bot.HandleText, c)

	assert.Empty(t, c.sent)
	_, err := h.store.GetUserByTelegramID(context.Background(), userTID)
	assert.Error(t, err)
}

func TestSubmitAndApprove(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)

	post := h.submitPost(userTID, "hello <world>")
	assert.Equal(t, "hello <world>", post.TextContent)
	assert.Equal(t, models.PostStatusPending, post.Status)

	alerts := h.api.take(adminTID)
	require.Len(t, alerts, 1)
	photo, ok := alerts[0].what.(*telebot.Photo)
	require.True(t, ok, "alert carries the image")
	assert.Equal(t, "img-hello <world>", photo.FileID)
	assert.Contains(t, photo.Caption, "hello &lt;world&gt;")
	require.NotNil(t, alerts[0].markup())
	assert.Equal(t, "approve_post", alerts[0].markup().InlineKeyboard[0][0].Unique)

	c := h.callback(adminTID, "approve_post", h.bot.HandleApprove, strID(post.ID))
	require.Len(t, c.responses, 1)
	assert.Contains(t, c.responses[0].Text, "одобрен")
	assert.Equal(t, 1, h.api.edited)

	got := h.api.take(userTID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].text(), "одобрен")

	t.Run("second press is refused", func(t *testing.T) {
		c := h.callback(adminTID, "approve_post", h.bot.HandleApprove, strID(post.ID))
		require.Len(t, c.responses, 1)
		assert.True(t, c.responses[0].ShowAlert)
		assert.Contains(t, c.responses[0].Text, "Уже обработано")
		assert.Empty(t, h.api.take(userTID))
	})

	other := h.submitPost(userTID, "second")
	t.Run("regular users cannot review", func(t *testing.T) {
		c := h.callback(userTID, "approve_post", h.bot.HandleApprove, strID(other.ID))
		require.Len(t, c.responses, 1)
		assert.Contains(t, c.responses[0].Text, "нет доступа")
	})
}

func TestPhotoWithCaptionSkipsTextStep(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)

	h.text(userTID, btnSubmitPost)
	c := h.photo(userTID, "img", "caption")
	assert.Contains(t, c.lastText(), "отправлен на модерацию")

	owner, err := h.store.GetUserByTelegramID(context.Background(), userTID)
	require.NoError(t, err)
	posts, err := h.store.ListPostsByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "caption", posts[0].TextContent)
}

func TestSkipTextAndNonImage(t *testing.T) {
	h := newHarness(t)
	h.start(userTID)

	h.text(userTID, btnSubmitPost)
	h.text(userTID, ".")
	c := h.text(userTID, "more text instead of an image")
	assert.Contains(t, c.lastText(), "отправьте изображение")

	c = h.photo(userTID, "img", "")
	assert.Contains(t, c.lastText(), "отправлен на модерацию")
}

func TestRejectFlow(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)
	post := h.submitPost(userTID, "meh")
	h.api.take(adminTID)

	c := h.callback(adminTID, "reject_post", h.bot.HandleRejectStart, strID(post.ID))
	assert.Contains(t, c.lastText(), "причину отклонения")

	c = h.text(adminTID, "   ")
	assert.Contains(t, c.lastText(), "Причина должна быть непустой")

	c = h.text(adminTID, "off topic")
	assert.Contains(t, c.lastText(), "отклонен")

	got := h.api.take(userTID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].text(), "off topic")

	stored, err := h.store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusRejected, stored.Status)

	t.Run("reject button on a reviewed post", func(t *testing.T) {
		c := h.callback(adminTID, "reject_post", h.bot.HandleRejectStart, strID(post.ID))
		require.Len(t, c.responses, 1)
		assert.True(t, c.responses[0].ShowAlert)
	})
}

func TestBlockedUserIsRefused(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)

	user, err := h.store.GetUserByTelegramID(context.Background(), userTID)
	require.NoError(t, err)

	h.text(userTID, btnContact)

	c := h.callback(adminTID, "block_user", h.bot.HandleStatusStart(session.KindAwaitingBlockReason), strID(user.ID))
	assert.Contains(t, c.lastText(), "причину блокировки")
	c = h.text(adminTID, "spam")
	assert.Contains(t, c.lastText(), "заблокирован")

	got := h.api.take(userTID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].text(), "spam")

	c = h.text(userTID, "please")
	assert.Contains(t, c.lastText(), "заблокированы")

	c = h.text(userTID, btnSubmitPost)
	assert.Contains(t, c.lastText(), "заблокированы")

	t.Run("unblock", func(t *testing.T) {
		h.callback(adminTID, "unblock_user", h.bot.HandleStatusStart(session.KindAwaitingUnblockReason), strID(user.ID))
		h.text(adminTID, "appeal")

		c := h.text(userTID, btnSubmitPost)
		assert.Contains(t, c.lastText(), "Напишите текст")
	})
}

func TestFeedbackFlow(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)

	h.text(userTID, btnContact)
	c := h.text(userTID, "where is my post?")
	assert.Contains(t, c.lastText(), "отправлено администрации")

	alerts := h.api.take(adminTID)
	require.Len(t, alerts, 1)
	markup := alerts[0].markup()
	require.NotNil(t, markup)
	fbID := markup.InlineKeyboard[0][0].Data

	c = h.callback(adminTID, "respond_feedback", h.bot.HandleRespondStart, fbID)
	assert.Contains(t, c.lastText(), "Введите ответ")
	h.text(adminTID, "soon")

	got := h.api.take(userTID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].text(), "soon")
	assert.Contains(t, got[0].text(), "where is my post?")

	c = h.callback(adminTID, "respond_feedback", h.bot.HandleRespondStart, fbID)
	require.Len(t, c.responses, 1)
	assert.Contains(t, c.responses[0].Text, "Уже обработано")
}

func TestAdminViewsRequireRole(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)

	for _, btn := range []string{btnAdminPanel, btnUsers, btnPending, btnApproved, btnRejected, btnFeedback, btnBroadcast} {
		c := h.text(userTID, btn)
		assert.Contains(t, c.lastText(), "нет доступа", btn)
	}

	c := h.command(userTID, "user", h.bot.HandleUserProfile, "1")
	assert.Contains(t, c.lastText(), "нет доступа")
}

func TestAdminViews(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)
	post := h.submitPost(userTID, "queued")

	c := h.text(adminTID, btnPending)
	require.Len(t, c.sent, 2)
	assert.Contains(t, c.sent[0].text(), "queued")
	assert.Contains(t, c.sent[1].text(), "Показано 1 из 1")

	c = h.text(adminTID, btnUsers)
	assert.Contains(t, c.lastText(), "@u100")

	user, err := h.store.GetUserByTelegramID(context.Background(), userTID)
	require.NoError(t, err)
	c = h.command(adminTID, "user", h.bot.HandleUserProfile, strID(user.ID))
	assert.Contains(t, c.lastText(), "Отправлено: 1")
	assert.Equal(t, "block_user", c.sent[0].markup().InlineKeyboard[0][0].Unique)

	c = h.command(adminTID, "post", h.bot.HandlePostDetails, strID(post.ID))
	assert.Contains(t, c.lastText(), "queued")
	require.NotNil(t, c.sent[0].markup())

	c = h.command(adminTID, "post", h.bot.HandlePostDetails, "nope")
	assert.Contains(t, c.lastText(), "Некорректный ввод")

	c = h.command(adminTID, "post", h.bot.HandlePostDetails, "999")
	assert.Contains(t, c.lastText(), "Не найдено")
}

func TestStatistics(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)
	post := h.submitPost(userTID, "good")
	h.callback(adminTID, "approve_post", h.bot.HandleApprove, strID(post.ID))

	c := h.callback(userTID, "top", h.bot.HandleTop, models.CounterApprovedPosts.String())
	assert.Contains(t, c.lastText(), "1. @u100 - 1")

	c = h.callback(userTID, "top", h.bot.HandleTop, "password")
	require.Len(t, c.responses, 1)
	assert.True(t, c.responses[0].ShowAlert)
}

func TestMyPosts(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID)

	c := h.text(userTID, btnMyPosts)
	assert.Contains(t, c.lastText(), "нет отправленных постов")

	h.submitPost(userTID, "first")
	c = h.text(userTID, btnMyPosts)
	assert.Contains(t, c.lastText(), "first")
}

func TestBroadcast(t *testing.T) {
	h := newHarness(t)
	h.start(adminTID, userTID, 101, 102)
	h.api.failFor[102] = true

	h.text(adminTID, btnBroadcast)
	c := h.text(adminTID, "maintenance tonight")
	assert.Contains(t, c.lastText(), "Предпросмотр")

	c = h.text(adminTID, "maybe")
	assert.Contains(t, c.lastText(), btnConfirmSend)

	c = h.text(adminTID, btnConfirmSend)
	assert.Contains(t, c.lastText(), "Начинаю рассылку")
	h.bot.Wait()

	for _, tid := range []int64{userTID, 101} {
		got := h.api.take(tid)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].text(), "maintenance tonight")
	}

	got := h.api.take(adminTID)
	require.Len(t, got, 2, "the admin gets the broadcast and the statistics")
	stats := got[1].text()
	assert.Contains(t, stats, "Всего пользователей: 4")
	assert.Contains(t, stats, "Успешно отправлено: 3")
	assert.Contains(t, stats, "Не удалось отправить: 1")
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.start(userTID)

	h.text(userTID, btnSubmitPost)
	c := h.text(userTID, btnCancel)
	assert.Contains(t, c.lastText(), "отменено")

	c = h.photo(userTID, "img", "")
	assert.Contains(t, c.lastText(), "Чтобы предложить пост")
}

type registrar struct {
	endpoints []string
}

func (r *registrar) Handle(endpoint interface{}, _ telebot.HandlerFunc, _ ...telebot.MiddlewareFunc) {
	switch e := endpoint.(type) {
	case string:
		r.endpoints = append(r.endpoints, e)
	case telebot.CallbackEndpoint:
		r.endpoints = append(r.endpoints, e.CallbackUnique())
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	r := &registrar{}
	h.bot.Register(r)

	assert.Contains(t, r.endpoints, "/start")
	assert.Contains(t, r.endpoints, telebot.OnText)
	assert.Contains(t, r.endpoints, telebot.OnPhoto)
	assert.Contains(t, r.endpoints, "\fapprove_post")
	assert.Contains(t, r.endpoints, "\frespond_feedback")
}
