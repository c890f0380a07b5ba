package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/expensebot/core/telegram/router"
	"github.com/m3rciful/expensebot/core/telegram/state"
	"github.com/m3rciful/expensebot/internal/expense"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
}

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]interface{}
	out    *[]sentMessage
}

func (f *fakeContext) Update() tele.Update             { return f.update }
func (f *fakeContext) Message() *tele.Message          { return f.update.Message }
func (f *fakeContext) Sender() *tele.User              { return f.update.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat                { return f.update.Message.Chat }
func (f *fakeContext) Text() string                    { return f.update.Message.Text }
func (f *fakeContext) Get(key string) interface{}      { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	msg := sentMessage{text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			msg.markup = so.ReplyMarkup
		}
	}
	*f.out = append(*f.out, msg)
	return nil
}

// chat simulates one user talking to the bot.
type chat struct {
	t      *testing.T
	conv   *Conversation
	userID int64
	out    []sentMessage
	lastTC *fakeContext
}

func (c *chat) context(text string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: len(c.out) + 1, Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: c.userID},
			Chat:   &tele.Chat{ID: c.userID},
		}},
		store: map[string]interface{}{},
		out:   &c.out,
	}
}

func (c *chat) start() string {
	c.t.Helper()
	c.lastTC = c.context("/start")
	require.NoError(c.t, c.conv.Start(c.lastTC))
	return c.lastReply().text
}

func (c *chat) cancel() string {
	c.t.Helper()
	c.lastTC = c.context("/cancel")
	require.NoError(c.t, c.conv.Cancel(c.lastTC))
	return c.lastReply().text
}

func (c *chat) say(text string) string {
	c.t.Helper()
	c.lastTC = c.context(text)
	require.NoError(c.t, c.conv.Handle(c.lastTC))
	return c.lastReply().text
}

func (c *chat) lastReply() sentMessage {
	require.NotEmpty(c.t, c.out)
	return c.out[len(c.out)-1]
}

func (c *chat) outcome() string {
	s, _ := c.lastTC.Get(router.OutcomeKey).(string)
	return s
}

type captureRecorder struct {
	records []expense.Record
	err     error
}

func (r *captureRecorder) Record(_ context.Context, rec expense.Record) error {
	r.records = append(r.records, rec)
	return r.err
}

func newTestConversation(rec expense.Recorder) (*Conversation, *state.MemoryManager[expense.Draft]) {
	flow := expense.NewFlow(expense.DefaultCatalog(), expense.Clock{
		Now: func() time.Time { return time.Date(2025, 2, 6, 12, 0, 0, 0, time.UTC) },
		Loc: time.UTC,
	})
	store := state.NewMemoryManager[expense.Draft](time.Hour)
	conv := NewConversation(flow, store, rec)
	conv.now = func() time.Time { return time.Date(2025, 2, 6, 12, 5, 0, 0, time.UTC) }
	return conv, store
}

func TestConversationSubmit(t *testing.T) {
	rec := &captureRecorder{}
	conv, store := newTestConversation(rec)
	c := &chat{t: t, conv: conv, userID: 7}

	require.Equal(t, expense.PromptDate, c.start())
	require.True(t, c.lastReply().markup.OneTimeKeyboard)
	require.True(t, conv.InProgress(7))

	require.Equal(t, expense.PromptCategory, c.say("Today"))
	require.Len(t, c.lastReply().markup.ReplyKeyboard, 2, "eight categories in rows of four")

	require.Equal(t, expense.PromptSubcategory, c.say("Vehicle"))
	require.Len(t, c.lastReply().markup.ReplyKeyboard, 3)

	require.Equal(t, expense.PromptAmount, c.say("Gas"))
	require.True(t, c.lastReply().markup.RemoveKeyboard)

	require.Equal(t, expense.PromptDescription, c.say("45.20"))
	require.Equal(t,
		"This is your record: 2025-02-06 - Vehicle - Gas - 45.20 - Shell. Do you want to submit it?",
		c.say("Shell"))

	require.Equal(t, "Submitted: 2025-02-06 - Vehicle - Gas - 45.20 - Shell", c.say("Submit"))
	require.Equal(t, "submitted", c.outcome())
	require.False(t, conv.InProgress(7))
	require.Zero(t, store.Len())

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	require.Equal(t, int64(7), got.UserID)
	require.Equal(t, "2025-02-06", got.Date)
	require.Equal(t, "Gas", got.Subcategory)
	require.NotEmpty(t, got.ID)

	// a later /start begins from an empty draft
	c.start()
	sess, ok := store.Get(7)
	require.True(t, ok)
	require.Equal(t, expense.Draft{}, sess.Data)
	require.Equal(t, state.State(expense.AwaitingDate), sess.State)
}

func TestConversationCancelAtConfirmation(t *testing.T) {
	rec := &captureRecorder{}
	conv, store := newTestConversation(rec)
	c := &chat{t: t, conv: conv, userID: 8}

	c.start()
	c.say("Yesterday")
	c.say("Grocery")
	c.say("12")
	c.say("milk")

	require.Equal(t, expense.ReplyCancelled, c.say("Cancel"))
	require.Equal(t, "cancelled", c.outcome())
	require.Zero(t, store.Len())
	require.Empty(t, rec.records)
	for _, m := range c.out {
		require.NotContains(t, m.text, "Submitted")
	}
}

func TestConversationCancelCommand(t *testing.T) {
	conv, store := newTestConversation(nil)
	c := &chat{t: t, conv: conv, userID: 9}

	c.start()
	c.say("Today")
	require.Equal(t, expense.ReplyCancelled, c.cancel())
	require.Zero(t, store.Len())

	// nothing to cancel still answers
	require.Equal(t, expense.ReplyCancelled, c.cancel())
}

func TestConversationRejectedInputKeepsDraft(t *testing.T) {
	conv, store := newTestConversation(nil)
	c := &chat{t: t, conv: conv, userID: 10}

	c.start()
	require.Equal(t, expense.ReplyFallback, c.say("Banana"))
	require.Equal(t, "fallback", c.outcome())
	require.Nil(t, c.lastReply().markup, "fallback keeps the current keyboard")
	require.Equal(t, state.State(expense.AwaitingDate), store.GetState(10))

	c.say("Enter Date")
	require.Equal(t, expense.ReplyInvalidDate, c.say("31 13 2025"))
	sess, _ := store.Get(10)
	require.Equal(t, state.State(expense.AwaitingDate), sess.State)
	require.True(t, sess.Data.EnteringDate)
	require.False(t, sess.Data.HasDate())

	require.Equal(t, expense.PromptCategory, c.say("06 02 2025"))
	sess, _ = store.Get(10)
	require.Equal(t, "2025-02-06", sess.Data.Date.Format(expense.DateLayout))
}

func TestConversationWithoutDraftFallsBack(t *testing.T) {
	conv, _ := newTestConversation(nil)
	c := &chat{t: t, conv: conv, userID: 11}

	require.Equal(t, expense.ReplyFallback, c.say("Today"))
	require.Equal(t, "fallback", c.outcome())
	require.False(t, conv.InProgress(11))
}

func TestConversationRecorderFailureDoesNotChangeReply(t *testing.T) {
	rec := &captureRecorder{err: errors.New("sink down")}
	conv, _ := newTestConversation(rec)
	c := &chat{t: t, conv: conv, userID: 12}

	c.start()
	c.say("Today")
	c.say("Grocery")
	c.say("3")
	c.say("bread")
	require.Equal(t, "Submitted: 2025-02-06 - Grocery - N/A - 3 - bread", c.say("Submit"))
	require.Len(t, rec.records, 1)
}

func TestConversationUsersAreIsolated(t *testing.T) {
	conv, store := newTestConversation(nil)
	a := &chat{t: t, conv: conv, userID: 21}
	b := &chat{t: t, conv: conv, userID: 22}

	a.start()
	b.start()
	a.say("Today")
	a.say("Home")

	require.Equal(t, state.State(expense.AwaitingSubcategory), store.GetState(21))
	require.Equal(t, state.State(expense.AwaitingDate), store.GetState(22))
}

func TestDraftsReport(t *testing.T) {
	conv, _ := newTestConversation(nil)
	admin := &chat{t: t, conv: conv, userID: 1}

	admin.lastTC = admin.context("/drafts")
	require.NoError(t, conv.Drafts(admin.lastTC))
	require.Equal(t, "Active drafts: 0", admin.lastReply().text)

	user := &chat{t: t, conv: conv, userID: 2}
	user.start()

	require.NoError(t, conv.Drafts(admin.context("/drafts")))
	require.Contains(t, admin.lastReply().text, "Active drafts: 1\nOldest touched ")
}

// slowStore holds every Get until a second reader arrives or wait elapses,
// widening the window between reading and saving a session.
type slowStore struct {
	state.Manager[expense.Draft]
	wait time.Duration

	mu      sync.Mutex
	readers int
	both    chan struct{}
}

func (s *slowStore) Get(userID int64) (state.Session[expense.Draft], bool) {
	s.mu.Lock()
	s.readers++
	if s.readers == 2 {
		close(s.both)
	}
	s.mu.Unlock()

	select {
	case <-s.both:
	case <-time.After(s.wait):
	}
	return s.Manager.Get(userID)
}

func TestConversationSerializesMessagesOfOneUser(t *testing.T) {
	conv, mem := newTestConversation(nil)
	c := &chat{t: t, conv: conv, userID: 7}
	c.start()
	c.say("Today")
	c.say("Grocery")
	require.Equal(t, state.State(expense.AwaitingAmount), mem.GetState(7))

	conv.store = &slowStore{Manager: mem, wait: 50 * time.Millisecond, both: make(chan struct{})}

	var wg sync.WaitGroup
	for _, text := range []string{"45.20", "Shell"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []sentMessage
			tc := c.context(text)
			tc.out = &out
			require.NoError(t, conv.Handle(tc))
		}()
	}
	wg.Wait()

	sess, ok := mem.Get(7)
	require.True(t, ok)
	require.Equal(t, state.State(expense.AwaitingConfirmation), sess.State)
	require.ElementsMatch(t, []string{"45.20", "Shell"}, []string{sess.Data.Amount, sess.Data.Description})
}

func TestConversationDoubleSubmitRecordsOnce(t *testing.T) {
	rec := &captureRecorder{}
	conv, mem := newTestConversation(rec)
	c := &chat{t: t, conv: conv, userID: 7}
	c.start()
	for _, text := range []string{"Today", "Grocery", "12", "milk"} {
		c.say(text)
	}
	conv.store = &slowStore{Manager: mem, wait: 50 * time.Millisecond, both: make(chan struct{})}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		replies []string
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []sentMessage
			tc := c.context(expense.ButtonSubmit)
			tc.out = &out
			require.NoError(t, conv.Handle(tc))
			mu.Lock()
			replies = append(replies, out[len(out)-1].text)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, rec.records, 1)
	require.Contains(t, replies, expense.ReplyFallback)
	require.False(t, mem.InProgress(7))
}
