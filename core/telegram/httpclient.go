package telegram

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/expensebot/core/logger"
	"github.com/m3rciful/expensebot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
	// long polling holds the request open for the poll timeout, so the
	// client deadline must exceed it.
	pollSlack = 15 * time.Second
)

// HTTPClientOptions tunes the Telegram API client.
type HTTPClientOptions struct {
	// PollTimeout is the long-poll timeout the client must outlive.
	PollTimeout time.Duration
	Retries     int
	Backoff     time.Duration
	// Base overrides the network transport, mostly for tests.
	Base http.RoundTripper
}

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshake,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetryAttempts
	}
	backoff := opts.Backoff
	if backoff == 0 {
		backoff = defaultRetryBackoff
	}
	poll := opts.PollTimeout
	if poll <= 0 {
		poll = defaultPollTimeout
	}

	return &http.Client{
		Timeout: poll + pollSlack,
		Transport: &retryTransport{
			base:       base,
			maxRetries: retries,
			backoff:    backoff,
		},
	}
}

// retryTransport resends requests that never left the host (see netutil.Unsent),
// waiting backoff*attempt between tries. Timeouts and resets are left to the
// caller: the request may already have been delivered.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		try := req
		if attempt > 0 {
			var ok bool
			if try, ok = rewind(req); !ok {
				return nil, lastErr
			}
			if err := sleepCtx(req.Context(), t.backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		resp, err := base.RoundTrip(try)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.Unsent(err) {
			break
		}
		if attempt < t.maxRetries {
			logger.Debug(req.Context(), "tg.wire", "http.retry",
				slog.Int("attempt", attempt+1),
				slog.String("endpoint", endpointOf(req)),
				slog.String("err_kind", string(netutil.Classify(err))),
			)
		}
	}
	return nil, lastErr
}

// rewind clones req with a fresh body. It fails for bodies that cannot be replayed.
func rewind(req *http.Request) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	switch {
	case req.GetBody != nil:
		body, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		clone.Body = body
	case req.Body != nil && req.Body != http.NoBody:
		return nil, false
	}
	return clone, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// endpointOf returns the Bot API method, the last path segment, so the token never reaches logs.
func endpointOf(req *http.Request) string {
	if req == nil || req.URL == nil || req.URL.Path == "" {
		return ""
	}
	return path.Base(req.URL.Path)
}
