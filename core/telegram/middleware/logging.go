package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for a short while, so an update passing the
// middleware twice is logged once.
type seenUpdates struct {
	ttl time.Duration

	mu  sync.Mutex
	ids map[int]time.Time
}

var received = &seenUpdates{ttl: 10 * time.Second, ids: make(map[int]time.Time)}

// first reports whether id has not been seen within ttl, and records it.
func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for old, at := range s.ids {
		if now.Sub(at) > s.ttl {
			delete(s.ids, old)
		}
	}
	if _, dup := s.ids[id]; dup {
		return false
	}
	s.ids[id] = now
	return true
}

// UpdateKind names the update type for logs and rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Query != nil:
		return "inline_query"
	case upd.Message != nil && upd.Message.Document != nil:
		return "document"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}

// LoggerMiddleware sets the update rid, caches the logging context on c and
// logs a sampled "update.received" debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var userID, chatID int64
		if u := c.Sender(); u != nil {
			userID = u.ID
		}
		if ch := c.Chat(); ch != nil {
			chatID = ch.ID
		}

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())
		ctx := logger.ForUpdate(rid, upd.ID, userID, chatID)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && received.first(upd.ID, time.Now()) {
			logger.Debug(ctx, "tg", "update.received", receivedAttrs(c)...)
		}
		return next(c)
	}
}

func receivedAttrs(c tele.Context) []slog.Attr {
	upd := c.Update()
	kind := UpdateKind(upd)
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", kind),
	}
	if ch := c.Chat(); ch != nil {
		attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	if text := c.Text(); text != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 256)))
	}
	if kind == "document" {
		attrs = append(attrs, slog.String("file_name", logger.SanitizeLimit(upd.Message.Document.FileName, 128)))
	}
	return attrs
}
