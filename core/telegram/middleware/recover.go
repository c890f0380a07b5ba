package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicError is returned to telebot in place of a handler panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("telegram: handler panic: %v", e.Value)
}

// Code keeps handler summaries readable.
func (e *PanicError) Code() string { return "panic" }

// RecoverMiddleware turns a handler panic into a logged *PanicError so one bad
// update cannot take the bot down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.String("kind", UpdateKind(c.Update())),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = &PanicError{Value: r}
		}()
		return next(c)
	}
}
