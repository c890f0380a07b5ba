package middleware

import (
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware gives every update its own send counters; the handler
// summary reads them back through helpers.SendCounters.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.AttachCounters(c)
		return next(c)
	}
}
