package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/expensebot/core/config"
	"github.com/m3rciful/expensebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns recover, logger, rate_limit (only when
// rate_limit.interval_ms is set) and metrics, in that order.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if rl, ok := rateLimit(cfg, onLimited); ok {
		chain = append(chain, rl)
	}
	return append(chain, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}

func rateLimit(cfg *coreconfig.Config, onLimited tele.HandlerFunc) (Middleware, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return Middleware{}, false
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(kind)] = struct{}{}
	}
	return Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:   exclude,
			OnLimited: onLimited,
		}),
	}, true
}

// MiddlewareNames lists the chain names in order, for startup logs.
func MiddlewareNames(mws []Middleware) []string {
	names := make([]string, len(mws))
	for i, mw := range mws {
		names[i] = mw.Name
	}
	return names
}
