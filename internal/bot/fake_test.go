package bot

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/admins"
	"github.com/C4T-BuT-S4D/predlozhka/internal/broadcast"
	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/moderation"
	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage/storagetest"
	"gopkg.in/telebot.v4"
)

type sentMessage struct {
	to   int64
	what interface{}
	opts []interface{}
}

func (m sentMessage) text() string {
	switch w := m.what.(type) {
	case string:
		return w
	case *telebot.Photo:
		return w.Caption
	default:
		return ""
	}
}

func (m sentMessage) markup() *telebot.ReplyMarkup {
	for _, opt := range m.opts {
		if rm, ok := opt.(*telebot.ReplyMarkup); ok {
			return rm
		}
	}
	return nil
}

// fakeContext implements the parts of telebot.Context the handlers use.
// Anything else panics on the nil embedded interface.
type fakeContext struct {
	telebot.Context

	update    telebot.Update
	chat      *telebot.Chat
	sender    *telebot.User
	message   *telebot.Message
	callback  *telebot.Callback
	args      []string
	sent      []sentMessage
	responses []*telebot.CallbackResponse
}

func (c *fakeContext) Update() telebot.Update { return c.update }
func (c *fakeContext) Chat() *telebot.Chat { return c.chat }
func (c *fakeContext) Sender() *telebot.User { return c.sender }
func (c *fakeContext) Message() *telebot.Message { return c.message }
func (c *fakeContext) Callback() *telebot.Callback { return c.callback }
func (c *fakeContext) Args() []string { return c.args }

func (c *fakeContext) Text() string {
	if c.message == nil {
		return ""
	}
	return c.message.Text
}

func (c *fakeContext) Data() string {
	if c.callback == nil {
		return ""
	}
	return c.callback.Data
}

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, sentMessage{to: c.chat.ID, what: what, opts: opts})
	return nil
}

func (c *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	if len(resp) == 0 {
		resp = []*telebot.CallbackResponse{{}}
	}
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *fakeContext) lastText() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].text()
}

type fakeAPI struct {
	mu      sync.Mutex
	sent    []sentMessage
	edited  int
	failFor map[int64]bool
}

func (a *fakeAPI) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := strconv.ParseInt(to.Recipient(), 10, 64)
	if err != nil {
		return nil, err
	}
	if a.failFor[id] {
		return nil, errors.New("telegram: bot was blocked by the user")
	}
	a.sent = append(a.sent, sentMessage{to: id, what: what, opts: opts})
	return &telebot.Message{ID: len(a.sent)}, nil
}

func (a *fakeAPI) EditReplyMarkup(telebot.Editable, *telebot.ReplyMarkup) (*telebot.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edited++
	return &telebot.Message{}, nil
}

// take returns and forgets messages pushed to recipient.
func (a *fakeAPI) take(recipient int64) []sentMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	var got, rest []sentMessage
	for _, m := range a.sent {
		if m.to == recipient {
			got = append(got, m)
		} else {
			rest = append(rest, m)
		}
	}
	a.sent = rest
	return got
}

const (
	adminTID = 1
	userTID  = 100
)

type harness struct {
	t        *testing.T
	bot      *Bot
	store    *storage.Storage
	api      *fakeAPI
	updateID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := storagetest.New(t)
	api := &fakeAPI{failFor: make(map[int64]bool)}
	notifier := NewNotifier(api)
	service := moderation.NewService(store, admins.New(store, []int64{adminTID}), notifier)
	cfg := &config.Config{
		BotHandleTimeout: 5 * time.Second,
		TopUsersLimit:    5,
	}

	b := New(
		cfg,
		service,
		store,
		session.NewManager(session.NewMemoryStore(), time.Minute),
		broadcast.New(store, notifier, 1000, 2),
		api,
	)
	return &harness{
		t:     t,
		bot:   b,
		store: store,
		api:   api,
	}
}

func (h *harness) context(tid int64) *fakeContext {
	h.updateID++
	return &fakeContext{
		update: telebot.Update{ID: h.updateID},
		chat:   &telebot.Chat{ID: tid, Type: telebot.ChatPrivate},
		sender: &telebot.User{ID: tid, Username: "u" + strconv.FormatInt(tid, 10), FirstName: "Name"},
	}
}

func (h *harness) run(name string, handler handlerFunc, c *fakeContext) *fakeContext {
	h.t.Helper()
	if err := h.bot.wrap(name, handler)(c); err != nil {
		h.t.Fatalf("handler returned %v", err)
	}
	return c
}

func (h *harness) command(tid int64, name string, handler handlerFunc, args ...string) *fakeContext {
	c := h.context(tid)
	c.message = &telebot.Message{Text: "/" + name}
	c.args = args
	return h.run(name, handler, c)
}

func (h *harness) text(tid int64, text string) *fakeContext {
	c := h.context(tid)
	c.message = &telebot.Message{Text: text}
	return h.run("text", h.bot.HandleText, c)
}

func (h *harness) photo(tid int64, fileID, caption string) *fakeContext {
	c := h.context(tid)
	c.message = &telebot.Message{
		Photo:   &telebot.Photo{File: telebot.File{FileID: fileID}},
		Caption: caption,
	}
	return h.run("photo", h.bot.HandlePhoto, c)
}

func (h *harness) callback(tid int64, name string, handler handlerFunc, data string) *fakeContext {
	c := h.context(tid)
	c.message = &telebot.Message{ID: 42, Chat: c.chat}
	c.callback = &telebot.Callback{Data: data, Message: c.message}
	return h.run(name, handler, c)
}
