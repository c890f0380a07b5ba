package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"
	"github.com/m3rciful/expensebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// OutcomeKey is the tele.Context key a handler sets to report its domain outcome
// (for example "submitted"). It replaces the default outcome of a successful run.
const OutcomeKey = "outcome"

// summary writes one "handler.handled" event per routed update.
type summary struct {
	handler string
	start   time.Time
	// status forces the status field; empty derives it from the error.
	status string
	// outcome is used when the handler reports none.
	outcome string
}

func summarize(handler string) summary {
	return summary{handler: handler, start: time.Now()}
}

func (s summary) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn(c)
	s.log(c, err)
	return err
}

func (s summary) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := tghelpers.SendCounters(c)

	status, outcome := s.status, s.outcome
	if status == "" {
		status = okOrFail(err)
	}
	if reported, _ := c.Get(OutcomeKey).(string); reported != "" && err == nil {
		outcome = reported
	}
	if outcome == "" {
		outcome = okOrFail(err)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}

func okOrFail(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// normalizeHandlerName turns "/Enter Date" into "enter_date".
func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode prefers an explicit Code(), then the Telegram failure kind, then the error type name.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return upperSnake(code)
		}
	}
	if kind := netutil.Classify(err); kind != netutil.KindUnknown && kind != netutil.KindNone {
		return upperSnake(string(kind))
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return upperSnake(t.Name())
}

func upperSnake(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}
