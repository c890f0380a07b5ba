package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user; zero disables limiting.
	Interval time.Duration
	// Exclude lists update kinds (see UpdateKind) that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// limiter remembers when each user was last let through.
type limiter struct {
	interval time.Duration

	mu        sync.Mutex
	lastSeen  map[int64]time.Time
	lastPrune time.Time
}

// allow records ts for userID unless the previous update came too recently.
func (l *limiter) allow(userID int64, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts.Sub(l.lastPrune) > time.Minute {
		for id, seen := range l.lastSeen {
			if ts.Sub(seen) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.lastPrune = ts
	}
	if last, ok := l.lastSeen[userID]; ok && ts.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = ts
	return true
}

// RateLimitMiddleware drops updates that arrive sooner than opts.Interval after the
// previous one from the same user. Dropped updates get opts.OnLimited instead of the handler.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &limiter{interval: opts.Interval, lastSeen: make(map[int64]time.Time)}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if kind == "document" {
				kind = "message"
			}
			if _, skip := opts.Exclude[kind]; skip || lim.allow(user.ID, now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
