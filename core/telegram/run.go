package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	coreconfig "github.com/m3rciful/expensebot/core/config"
	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"
	tgsender "github.com/m3rciful/expensebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named bot.Use entry; the name only shows up in logs.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds Handler to a telebot endpoint (a command string or tele.OnText and friends).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	// Dispatcher overrides the one built from DispatcherOptions.
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool
	// DisableHelperDispatcher keeps helper sends synchronous.
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to work with.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, wires middlewares and routes, and serves updates
// until ctx is cancelled or the poller stops. Cancellation is not an error.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	pollerOpts := pollerOptionsFrom(opts.Config)
	started := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   opts.Config.Telegram.Token,
		Poller:  BuildPoller(pollerOpts),
		Client:  BuildHTTPClient(HTTPClientOptions{PollTimeout: pollerOpts.PollTimeout()}),
		OnError: logUpdateError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, bot, pollerOpts, time.Since(started))

	if !opts.DisableWebhookCleanup && strings.EqualFold(pollerOpts.RunMode, coreconfig.RunModeLongpoll) {
		dropWebhook(ctx, bot)
	}

	rt := Runtime{Bot: bot, Dispatcher: opts.Dispatcher, Registry: opts.Registry}
	if rt.Dispatcher == nil {
		rt.Dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
	}
	release := func() {
		rt.Dispatcher.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	wire(ctx, bot, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runErr := serve(ctx, bot)

	var result *multierror.Error
	if opts.OnStop != nil {
		result = multierror.Append(result, opts.OnStop(context.WithoutCancel(ctx), rt))
	}
	release()
	if !errors.Is(runErr, context.Canceled) {
		result = multierror.Append(result, runErr)
	}
	return result.ErrorOrNil()
}

func pollerOptionsFrom(cfg *coreconfig.Config) PollerOptions {
	return PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
		AllowedUpdates: []string{"message"},
	}
}

func logUpdateError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "update.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

func logMode(ctx context.Context, bot *tele.Bot, opts PollerOptions, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	if wh, ok := bot.Poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(opts.PollTimeout()/time.Second)),
		)
	}
	logger.Info(ctx, "tg", "mode", attrs...)
}

// dropWebhook clears a webhook left over from a previous deployment so long polling receives updates.
func dropWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
}

func wire(ctx context.Context, bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	chain, truncated := logger.SummarizeStrings(MiddlewareNames(opts.Middlewares), 8)
	logger.Debug(ctx, "tg.wire", "middlewares",
		slog.String("chain", chain),
		slog.Bool("truncated", truncated),
	)

	bound := 0
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
			bound++
		}
	}
	logger.Info(ctx, "tg.wire", "routes.bound",
		slog.String("status", "ok"),
		slog.Int("routes", bound),
		slog.Int("skipped", len(opts.Routes)-bound),
	)

	InitBotCommands(bot, opts.Registry)
}

// serve blocks in bot.Start until ctx ends or the poller returns on its own.
func serve(ctx context.Context, bot *tele.Bot) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-stopped
		return ctx.Err()
	}
}
