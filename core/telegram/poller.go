package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/expensebot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultPollTimeout = 10 * time.Second

// WebhookOptions is the local listener and the URL Telegram posts to.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
	// AllowedUpdates limits the update kinds Telegram delivers; empty means all.
	AllowedUpdates []string
}

// PollTimeout is the long-poll timeout, defaultPollTimeout when unset.
func (o PollerOptions) PollTimeout() time.Duration {
	if o.LongPollTimeoutSeconds > 0 {
		return time.Duration(o.LongPollTimeoutSeconds) * time.Second
	}
	return defaultPollTimeout
}

// BuildPoller returns a webhook for run mode "webhook" and a long poller otherwise.
func BuildPoller(opts PollerOptions) tele.Poller {
	if !strings.EqualFold(strings.TrimSpace(opts.RunMode), coreconfig.RunModeWebhook) {
		return &tele.LongPoller{
			Timeout:        opts.PollTimeout(),
			AllowedUpdates: opts.AllowedUpdates,
		}
	}
	return &tele.Webhook{
		Listen:         net.JoinHostPort(opts.Webhook.Listen, strconv.Itoa(opts.Webhook.Port)),
		AllowedUpdates: opts.AllowedUpdates,
		Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
	}
}
