package app

import (
	"context"
	"fmt"
	"log/slog"

	corecmd "github.com/m3rciful/expensebot/core/cmd"
	"github.com/m3rciful/expensebot/core/logger"
	tg "github.com/m3rciful/expensebot/core/telegram"
	"github.com/m3rciful/expensebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"
	"github.com/m3rciful/expensebot/core/telegram/router"
	"github.com/m3rciful/expensebot/core/telegram/sender"
	"github.com/m3rciful/expensebot/core/telegram/state"
	"github.com/m3rciful/expensebot/internal/bot"
	"github.com/m3rciful/expensebot/internal/config"
	"github.com/m3rciful/expensebot/internal/expense"

	tele "gopkg.in/telebot.v4"
)

const (
	replyAdminOnly   = "This command is only available to the administrator."
	replyRateLimited = "Too many messages, please slow down."
)

// App owns the long-lived pieces of the bot: the draft store, the flow and the command registry.
type App struct {
	cfg      *config.Config
	store    *state.MemoryManager[expense.Draft]
	conv     *bot.Conversation
	notifier *bot.AdminNotifier
	registry *tg.Registry
}

// Bootstrap initializes logging and builds the App; it plugs into core/cmd.Run.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		return nil, fmt.Errorf("app: logger init failed: %w", err)
	}
	return New(cfg)
}

// New wires the store, flow, recorders and commands from cfg.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	store := state.NewMemoryManager[expense.Draft](cfg.Session.TTL)
	flow := expense.NewFlow(cfg.Expense.Catalog(), expense.Clock{Loc: cfg.Expense.Location()})

	recorders := expense.MultiRecorder{bot.LogRecorder{}}
	var notifier *bot.AdminNotifier
	if cfg.Expense.NotifyAdmin {
		notifier = bot.NewAdminNotifier(cfg.Telegram.AdminID)
		recorders = append(recorders, notifier)
	}

	a := &App{
		cfg:      cfg,
		store:    store,
		conv:     bot.NewConversation(flow, store, recorders),
		notifier: notifier,
		registry: tg.NewRegistry(),
	}
	if err := a.registerCommands(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) registerCommands() error {
	defs := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{
			Handler:     a.conv.Start,
			Description: "Record a new transaction",
		}},
		{"/cancel", commands.Command{
			Handler:     a.conv.Cancel,
			Description: "Discard the current record",
			Aliases:     []string{"stop"},
		}},
		{"/drafts", commands.Command{
			Handler:     a.conv.Drafts,
			Description: "Show open drafts",
			AdminOnly:   true,
			Hidden:      true,
		}},
	}
	for _, d := range defs {
		if !a.registry.RegisterCommand(d.name, d.cmd) {
			return fmt.Errorf("app: failed to register %s", d.name)
		}
	}
	a.registry.SetTextFallback(a.conv.Fallback)
	return nil
}

// Registry exposes the command registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// Store exposes the draft store.
func (a *App) Store() state.Manager[expense.Draft] { return a.store }

// TelegramRunOptions implements core/cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: replyText(replyAdminOnly),
	})
	routes = append(routes, router.TextRoutes(a.conv, a.registry, router.TextOptions{
		UnknownText:     a.conv.Fallback,
		UnknownDocument: a.conv.Fallback,
	})...)

	return tg.RunOptions{
		Config:   core,
		Registry: a.registry,
		DispatcherOptions: sender.Options{
			QueueSize:  64,
			Workers:    4,
			MaxRetries: 3,
		},
		Middlewares: tg.DefaultMiddlewares(core, replyText(replyRateLimited)),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if a.notifier != nil {
		if rt.Bot == nil {
			return fmt.Errorf("app: admin notification needs a running bot")
		}
		a.notifier.Bind(rt.Bot)
	}
	go a.store.Run(ctx, a.cfg.Session.SweepInterval)

	logger.Info(ctx, "app", "expense.ready",
		slog.String("status", "ok"),
		slog.Int("categories", a.cfg.Expense.Catalog().Len()),
		slog.String("timezone", a.cfg.Expense.Location().String()),
		slog.Duration("session_ttl", a.cfg.Session.TTL),
		slog.Bool("notify_admin", a.notifier != nil),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	logger.Info(ctx, "app", "expense.stopped",
		slog.Int("sessions", a.store.Len()),
	)
	return nil
}

func replyText(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, text)
	}
}
