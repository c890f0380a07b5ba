package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/expensebot/core/logger"
	"github.com/m3rciful/expensebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d; nil makes them synchronous again.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// sendAsync hands run to the dispatcher. When its queue is full or closed the
// message is sent inline rather than dropped.
func sendAsync(ctx context.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, action, endpoint, run)
	if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
		return err
	}
	logger.Warn(ctx, "tg.sender", "queue.fallback",
		slog.String("action", action),
		slog.String("endpoint", endpoint),
		slog.String("err", err.Error()),
	)
	return run()
}

// SendText sends text without a parse mode to the chat of c. Only the first opts entry is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var extra []interface{}
	var first *tele.SendOptions
	if len(opts) > 0 && opts[0] != nil {
		first = opts[0]
		extra = append(extra, first)
	}
	countSend(c, first)
	return sendAsync(BuildContext(c), "send.text", "sendMessage", func() error {
		return c.Send(text, extra...)
	})
}

// SendWithKeyboard sends plain text with the given reply markup attached.
func SendWithKeyboard(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return SendText(c, text)
	}
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// Sender is the subset of *tele.Bot used to message arbitrary chats.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SendTo delivers text to an arbitrary recipient outside of an update, e.g. an admin chat.
// Ordering follows the chat id carried by ctx.
func SendTo(ctx context.Context, bot Sender, to tele.Recipient, text string) error {
	if bot == nil || to == nil {
		return errors.New("telegram helpers: nil bot or recipient")
	}
	return sendAsync(ctx, "send.notify", "sendMessage", func() error {
		_, err := bot.Send(to, text)
		return err
	})
}
