package middleware

import (
	"log/slog"

	"github.com/m3rciful/expensebot/core/logger"
	"github.com/m3rciful/expensebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions names the administrator and what non-admins get instead.
type AdminOptions struct {
	// AdminID zero means nobody is admin.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// WithAdminCheck returns cmd.Handler, gated by AdminOnlyMiddleware for admin-only commands.
func WithAdminCheck(opts AdminOptions, cmd commands.Command) tele.HandlerFunc {
	if cmd.AdminOnly {
		return AdminOnlyMiddleware(opts)(cmd.Handler)
	}
	return cmd.Handler
}

// AdminOnlyMiddleware lets only opts.AdminID through.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if opts.AdminID != 0 && user != nil && user.ID == opts.AdminID {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied", slog.String("status", "denied"))
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
