package telegram

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/expensebot/core/logger"
	"github.com/m3rciful/expensebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot commands, keyed by "/name", and the text fallback.
type Registry struct {
	mu           sync.RWMutex
	commands     map[string]commands.Command
	textFallback tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds cmd under name. It refuses, logs and returns false when
// name lacks the leading slash, the handler or description is missing, or name is taken.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) bool {
	switch {
	case r == nil || name == "" || cmd.Handler == nil || cmd.Description == "":
		return skipCommand(name, "invalid")
	case !strings.HasPrefix(name, "/"):
		return skipCommand(name, "no_slash_prefix")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.commands[name]; taken {
		return skipCommand(name, "duplicate")
	}
	r.commands[name] = cmd
	return true
}

func skipCommand(name, reason string) bool {
	logger.Warn(context.Background(), "tg.wire", "register.command.skip",
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return false
}

// ListCommands returns commands sorted by name for the Telegram menu.
// With visibleOnly, hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[name]
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	return list
}

// LookupCommand resolves name, with or without the slash, against command keys
// and then aliases. It returns the canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = "/" + strings.TrimPrefix(name, "/")

	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		if slices.Contains(cmd.Aliases, name) || slices.Contains(cmd.Aliases, name[1:]) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// SetTextFallback sets the handler for text nobody else claims.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the handler set by SetTextFallback.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the visible commands as the bot menu. Failures are only logged.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
