package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"
	"github.com/m3rciful/expensebot/core/telegram/keyboard"
	"github.com/m3rciful/expensebot/core/telegram/router"
	"github.com/m3rciful/expensebot/core/telegram/state"
	"github.com/m3rciful/expensebot/internal/expense"

	tele "gopkg.in/telebot.v4"
)

const (
	component = "tg.fsm"
	userLocks = 64
)

// Conversation binds the expense flow to Telegram updates and the session store.
// telebot runs handlers concurrently, so the read-transition-write of one user's
// session is serialized through a striped lock keyed by user id.
type Conversation struct {
	flow     *expense.Flow
	store    state.Manager[expense.Draft]
	recorder expense.Recorder
	now      func() time.Time
	locks    [userLocks]sync.Mutex
}

// NewConversation wires a conversation. recorder may be nil.
func NewConversation(flow *expense.Flow, store state.Manager[expense.Draft], recorder expense.Recorder) *Conversation {
	return &Conversation{
		flow:     flow,
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}
}

func (c *Conversation) lock(userID int64) func() {
	mu := &c.locks[uint64(userID)%userLocks]
	mu.Lock()
	return mu.Unlock
}

// InProgress reports whether the user has an open draft.
func (c *Conversation) InProgress(userID int64) bool {
	return c.store.InProgress(userID)
}

// Start handles /start: any previous draft is replaced by a fresh one.
func (c *Conversation) Start(tc tele.Context) error {
	user := tc.Sender()
	if user == nil {
		return nil
	}
	defer c.lock(user.ID)()
	ctx := tghelpers.BuildContext(tc)
	prev := c.store.GetState(user.ID)

	step := c.flow.Start()
	c.store.Save(user.ID, state.State(step.State), step.Draft)
	logTransition(ctx, expense.State(prev), step)
	return c.reply(tc, step.Reply)
}

// Cancel handles /cancel from any state.
func (c *Conversation) Cancel(tc tele.Context) error {
	user := tc.Sender()
	if user == nil {
		return nil
	}
	defer c.lock(user.ID)()
	ctx := tghelpers.BuildContext(tc)
	sess, ok := c.store.Get(user.ID)
	step := c.flow.Cancel(sess.Data)
	if ok {
		c.store.Clear(user.ID)
		logTransition(ctx, expense.State(sess.State), step)
	}
	tc.Set(router.OutcomeKey, step.Outcome.String())
	return c.reply(tc, step.Reply)
}

// Handle feeds a text or document update into the user's draft.
func (c *Conversation) Handle(tc tele.Context) error {
	user := tc.Sender()
	if user == nil {
		return nil
	}
	defer c.lock(user.ID)()
	ctx := tghelpers.BuildContext(tc)

	sess, ok := c.store.Get(user.ID)
	if !ok {
		return c.Fallback(tc)
	}
	from := expense.State(sess.State)
	step := c.flow.Handle(from, sess.Data, tc.Text())

	if step.Err != nil {
		cause := "unrecognized"
		if errors.Is(step.Err, expense.ErrInvalidDate) {
			cause = "invalid_date"
		}
		tc.Set(router.OutcomeKey, "fallback")
		logger.Debug(ctx, component, "fsm.rejected",
			slog.String("state", string(from)),
			slog.String("cause", cause),
		)
		// rejected input still counts as activity for the idle timer
		c.store.Save(user.ID, sess.State, step.Draft)
		return c.reply(tc, step.Reply)
	}

	var rec *expense.Record
	switch step.Outcome {
	case expense.Submitted:
		r := expense.NewRecord(user.ID, step.Draft, c.now())
		rec = &r
		c.store.Clear(user.ID)
	case expense.Cancelled:
		c.store.Clear(user.ID)
	default:
		c.store.Save(user.ID, state.State(step.State), step.Draft)
	}
	tc.Set(router.OutcomeKey, step.Outcome.String())
	logTransition(ctx, from, step)

	if err := c.reply(tc, step.Reply); err != nil {
		return err
	}
	if rec != nil {
		c.record(ctx, *rec)
	}
	return nil
}

// Fallback answers text that arrives outside of a conversation.
func (c *Conversation) Fallback(tc tele.Context) error {
	tc.Set(router.OutcomeKey, "fallback")
	return tghelpers.SendText(tc, expense.ReplyFallback)
}

// Drafts reports how many drafts are open, for the admin.
func (c *Conversation) Drafts(tc tele.Context) error {
	n := c.store.Len()
	text := fmt.Sprintf("Active drafts: %d", n)
	if oldest, ok := c.store.Oldest(); ok {
		text += fmt.Sprintf("\nOldest touched %s", humanize.RelTime(oldest, c.now(), "ago", "from now"))
	}
	return tghelpers.SendText(tc, text)
}

func (c *Conversation) record(ctx context.Context, rec expense.Record) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, rec); err != nil {
		logger.Error(ctx, "expense", "transaction.record_failed",
			slog.String("status", "fail"),
			slog.String("record_id", rec.ID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func (c *Conversation) reply(tc tele.Context, r expense.Reply) error {
	if r.Keep {
		return tghelpers.SendText(tc, r.Text)
	}
	return tghelpers.SendWithKeyboard(tc, r.Text, Markup(r))
}

// Markup converts a reply's options into a one-time keyboard, or a keyboard removal.
func Markup(r expense.Reply) *tele.ReplyMarkup {
	return keyboard.OneTime(keyboard.Chunk(r.Options, r.Columns)...)
}

func logTransition(ctx context.Context, from expense.State, step expense.Step) {
	if from == "" {
		from = expense.StateIdle
	}
	attrs := []slog.Attr{
		slog.String("state", string(from)),
		slog.String("next_state", string(step.State)),
		slog.String("outcome", step.Outcome.String()),
	}
	if step.Draft.Category != "" {
		attrs = append(attrs, slog.String("category", step.Draft.Category))
	}
	logger.Info(ctx, component, "fsm.transition", attrs...)
}
