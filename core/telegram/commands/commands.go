package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one slash command as registered in the bot registry.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run for telegram.admin_id only and never show in the menu.
	AdminOnly bool
	// Hidden commands work but are left out of the menu.
	Hidden bool
	// Aliases are extra names, with or without the leading slash, bound to Handler.
	Aliases []string
}
