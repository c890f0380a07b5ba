package helpers

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "send_counters"

// Counters records what handlers queued for one update. Sends are counted when
// queued, so summaries stay accurate while the dispatcher delivers asynchronously.
type Counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// AttachCounters installs fresh counters on c.
func AttachCounters(c tele.Context) *Counters {
	cnt := &Counters{}
	c.Set(countersKey, cnt)
	return cnt
}

// SendCounters reports how many messages were queued for c and whether any of them
// showed a keyboard. Keyboard removals do not count as keyboards.
func SendCounters(c tele.Context) (int, bool) {
	cnt, ok := c.Get(countersKey).(*Counters)
	if !ok || cnt == nil {
		return 0, false
	}
	return int(cnt.messages.Load()), cnt.keyboard.Load()
}

func countSend(c tele.Context, opts *tele.SendOptions) {
	cnt, ok := c.Get(countersKey).(*Counters)
	if !ok || cnt == nil {
		return
	}
	cnt.messages.Add(1)
	if opts != nil && opts.ReplyMarkup != nil && !opts.ReplyMarkup.RemoveKeyboard {
		cnt.keyboard.Store(true)
	}
}
