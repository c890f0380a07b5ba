package router

import (
	"strings"

	tg "github.com/m3rciful/expensebot/core/telegram"
	"github.com/m3rciful/expensebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation the text routes feed while a user has one in progress.
type FSM interface {
	InProgress(userID int64) bool
	Handle(c tele.Context) error
}

// TextOptions holds the handlers used when nothing else claims an update.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds the OnText and OnDocument handlers. A conversation in progress
// wins, then a slash command telebot did not bind (a non-admin alias), then the
// registry fallback, then opts.UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inProgress := func(c tele.Context) bool {
		return fsm != nil && c.Sender() != nil && fsm.InProgress(c.Sender().ID)
	}
	converse := func(c tele.Context) error { return fsm.Handle(c) }

	onText := func(c tele.Context) error {
		if inProgress(c) {
			return summarize("fsm").run(c, converse)
		}
		if reg != nil {
			if key, cmd, ok := lookupSlash(reg, c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return summarize(normalizeHandlerName(key)).run(c, cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return fallback("fallback").run(c, fb)
			}
		}
		return unclaimed(c, "unknown_text", opts.UnknownText)
	}

	onDocument := func(c tele.Context) error {
		if inProgress(c) {
			return summarize("fsm_document").run(c, converse)
		}
		return unclaimed(c, "unexpected_document", opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: onText},
		{Endpoint: tele.OnDocument, Handler: onDocument},
	}
}

// lookupSlash resolves only text that starts with "/", so plain words stay conversation input.
func lookupSlash(reg *tg.Registry, text string) (string, commands.Command, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	if !strings.HasPrefix(name, "/") {
		return "", commands.Command{}, false
	}
	return reg.LookupCommand(name)
}

func fallback(handler string) summary {
	s := summarize(handler)
	s.outcome = "fallback"
	return s
}

// unclaimed runs h as a fallback, or only logs a skip when h is nil.
func unclaimed(c tele.Context, handler string, h tele.HandlerFunc) error {
	if h != nil {
		return fallback(handler).run(c, h)
	}
	s := summarize(handler)
	s.status = "skip"
	s.outcome = "ok"
	s.log(c, nil)
	return nil
}
