package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/expensebot/core/buildinfo"
	coreconfig "github.com/m3rciful/expensebot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the process logger; nil until InitLogger runs, which makes every helper a no-op.
	L *slog.Logger
)

// settings is the logging part of the config after defaults are applied.
type settings struct {
	format    logFormat
	keyOrder  []string
	level     slog.Level
	sampleNum int
	sampleDen int
	profile   string
	file      string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		sampleNum: 1,
		sampleDen: 50,
		profile:   "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		switch num, den := parseRatioSpec(spec); {
		case num == 0 && den == 0:
			s.sampleNum, s.sampleDen = 0, 0
		case num > 0 && den > 0:
			s.sampleNum, s.sampleDen = num, den
		}
	}

	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// InitLogger configures the global structured logger. Later calls are no-ops.
// It fails only when logging.dir/bot_file name a file that cannot be opened.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleNum, s.sampleDen)
		traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			f, err := openLogFile(s.file)
			if err != nil {
				initErr = err
				return
			}
			outputs = append(outputs, f)
			logClosers = append(logClosers, f)
		}
		logWriter = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(L)
		logStartup(cfg, s)
	})
	return initErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

func logStartup(cfg *coreconfig.Config, s settings) {
	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		attrs = append(attrs, slog.String("mode", cfg.Telegram.RunMode))
	}
	Info(context.Background(), "app", "startup", attrs...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var result *multierror.Error
	if logWriter != nil {
		result = multierror.Append(result, logWriter.Flush(), logWriter.Close())
	}
	for _, c := range logClosers {
		result = multierror.Append(result, c.Close())
	}
	return result.ErrorOrNil()
}

// Component returns L scoped to a component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event writes one structured event. The context logger is used when it exists,
// so update-scoped fields set by the middleware are kept.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if component = strings.TrimSpace(component); component != "" {
		head = append(head, slog.String("component", component))
	}
	if event != "" {
		head = append(head, slog.String("event", event))
	}
	logg.LogAttrs(ctx, level, event, append(head, attrs...)...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// TRACE or LOG_TRACE disables sampling.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
