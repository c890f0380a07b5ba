package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/expensebot/core/logger"
	tg "github.com/m3rciful/expensebot/core/telegram"
	"github.com/m3rciful/expensebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate in front of commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers with admin checks and handler summaries.
// Aliases get their own endpoints bound to the same handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for key, def := range cmds {
		name := normalizeHandlerName(key)
		inner := middleware.WithAdminCheck(adminOpts, def)
		h := func(c tele.Context) error {
			return summarize(name).run(c, inner)
		}
		routes = append(routes, tg.Route{Endpoint: key, Handler: h})
		for _, alias := range def.Aliases {
			if alias = strings.TrimPrefix(alias, "/"); alias != "" {
				routes = append(routes, tg.Route{Endpoint: "/" + alias, Handler: h})
			}
		}
	}

	logger.Info(context.Background(), "tg.wire", "routes.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("routes", len(routes)),
	)

	return routes
}
