package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/expensebot/core/logger"
	"github.com/m3rciful/expensebot/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the buffer of each worker lane.
	QueueSize int
	// Workers is the number of lanes. Jobs for one chat always share a lane.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Messages addressed to the same chat are delivered in enqueue order.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	mu    sync.RWMutex
	done  bool
	once  sync.Once
	wg    sync.WaitGroup
	errs  atomic.Uint64
	sent  atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts:  opts,
		lanes: make([]chan job, opts.Workers),
	}

	d.wg.Add(opts.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, opts.QueueSize)
		go d.worker(d.lanes[i])
	}

	return d
}

// Enqueue schedules the provided function for asynchronous execution.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	chatID := logger.ChatIDFrom(ctx)

	j := job{
		ctx:      ctx,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.done {
		return ErrQueueClosed
	}
	select {
	case d.lanes[d.laneFor(chatID)] <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// laneFor pins a chat to one lane; negative group ids wrap through uint64.
func (d *Dispatcher) laneFor(chatID int64) int {
	return int(uint64(chatID) % uint64(len(d.lanes)))
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// SentCount returns the number of jobs that completed successfully.
func (d *Dispatcher) SentCount() uint64 {
	return d.sent.Load()
}

// Close stops accepting jobs and waits for workers to drain queued ones.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.done = true
		for _, lane := range d.lanes {
			close(lane)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker(lane <-chan job) {
	defer d.wg.Done()
	for j := range lane {
		if err := d.deliver(j); err != nil {
			d.errs.Add(1)
			continue
		}
		d.sent.Add(1)
	}
}

// deliver runs j until it succeeds, fails permanently or runs out of attempts or time.
// Transient network errors back off linearly; flood errors wait as long as Telegram asks,
// provided that still fits into MaxDuration.
func (d *Dispatcher) deliver(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		err := j.run()
		if err == nil {
			level := slog.LevelDebug
			if attempt > 1 {
				level = slog.LevelInfo
			}
			logger.Event(j.ctx, component, level, "send.ok", append(j.attrs(),
				slog.Int("attempts", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return nil
		}

		wait, retry := d.backoff(err, attempt)
		if !retry || attempt >= attempts {
			d.logFailure(j, err, attempt, start)
			return err
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			d.logFailure(j, err, attempt, start)
			return err
		}

		logger.Debug(j.ctx, component, "send.retry", append(j.attrs(),
			slog.String("status", "retry"),
			slog.String("err_code", string(netutil.Classify(err))),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", wait),
		)...)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logFailure(j, ctx.Err(), attempt, start)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	if wait, ok := netutil.RetryAfter(err); ok {
		return wait, true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func (d *Dispatcher) logFailure(j job, err error, attempts int, start time.Time) {
	kind := netutil.Classify(err)
	logger.Error(j.ctx, component, "send.fail", append(j.attrs(),
		slog.String("status", "fail"),
		slog.String("err", redactToken(err)),
		slog.String("err_code", string(kind)),
		slog.Bool("retryable", kind.Transient() || kind == netutil.KindFlood),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)...)
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// redactToken keeps bot tokens embedded in request URLs out of the logs.
func redactToken(err error) string {
	if err == nil {
		return ""
	}
	return logger.SanitizeLimit(tokenRe.ReplaceAllString(err.Error(), "bot<redacted>"), 256)
}
