package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as one flat line with a fixed key order,
// merging update metadata carried by the context.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

// fields is one log line before encoding.
type fields map[string]any

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	isJSON := h.cfg.format == formatJSON

	f := make(fields, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	f["level"] = normalizeLevel(r.Level.String())
	if isJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		f.add(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(prefix, a)
		return true
	})
	f.addContext(ctx)

	if rid, ok := f.str("rid"); ok {
		if compact := CompactRID(rid); compact != rid {
			if _, seen := f["rid_full"]; isJSON && !seen {
				f["rid_full"] = rid
			}
			f["rid"] = compact
		}
	}
	if ev, _ := f.str("event"); ev == "" {
		f["event"] = "unknown"
		if r.Message != "" {
			f["event"] = r.Message
		}
	}
	if comp, _ := f.str("component"); comp == "" {
		f["component"] = "app"
	}
	f.normalizeEnums()
	f.prune()

	var line []byte
	if isJSON {
		var err error
		if line, err = f.json(h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = f.kv(h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// add flattens attr into f; group members become dotted keys.
func (f fields) add(prefix string, attr slog.Attr) {
	key := attr.Key
	switch {
	case key == "":
		key = prefix
	case prefix != "":
		key = prefix + "." + key
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, child := range attr.Value.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := normalizeAttr(key, attr.Value.Resolve()); ok {
		f[k] = v
	}
}

// addContext fills ids from ctx unless the record already set them.
func (f fields) addContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	setDefault := func(key string, val any, present bool) {
		if _, ok := f[key]; present && !ok {
			f[key] = val
		}
	}
	rid := RIDFrom(ctx)
	setDefault("rid", rid, rid != "")
	uid := UserIDFrom(ctx)
	setDefault("user_id", uid, uid != 0)
	upd := UpdateIDFrom(ctx)
	setDefault("update_id", upd, upd != 0)
	cid := ChatIDFrom(ctx)
	setDefault("chat_id", cid, cid != 0)
	h := HandlerFrom(ctx)
	setDefault("handler", h, h != "")
}

func (f fields) str(key string) (string, bool) {
	v, ok := f[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	}
	return fmt.Sprint(v), true
}

// normalizeEnums maps status and outcome onto the known vocabularies.
// Unknown statuses are kept as-is; unknown outcomes are dropped.
func (f fields) normalizeEnums() {
	if s, _ := f.str("status"); s != "" {
		if mapped, ok := normalizeStatus(s); ok {
			f["status"] = mapped
		}
	}
	if o, _ := f.str("outcome"); o != "" {
		if mapped, ok := normalizeOutcome(o); ok {
			f["outcome"] = mapped
		} else {
			delete(f, "outcome")
		}
	}
}

func (f fields) prune() {
	for k, v := range f {
		switch val := v.(type) {
		case nil:
			delete(f, k)
		case string:
			if val == "" {
				delete(f, k)
			}
		}
	}
}

// keys returns the configured order first, then the remaining keys sorted.
func (f fields) keys(order []string) []string {
	out := make([]string, 0, len(f))
	seen := make(map[string]struct{}, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok {
			if _, dup := seen[k]; !dup {
				out = append(out, k)
				seen[k] = struct{}{}
			}
		}
	}
	rest := make([]string, 0, len(f)-len(out))
	for k := range f {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (f fields) json(order []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range f.keys(order) {
		data, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (f fields) kv(order []string) []byte {
	var b strings.Builder
	for i, k := range f.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(f[k]))
	}
	return []byte(b.String())
}

func kvValue(v any) string {
	s := fmt.Sprint(v)
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

func normalizeAttr(key string, val slog.Value) (string, any, bool) {
	switch val.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(val.String()), true
	case slog.KindBool:
		return key, val.Bool(), true
	case slog.KindInt64:
		return key, val.Int64(), true
	case slog.KindUint64:
		if u := val.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, val.Uint64(), true
	case slog.KindFloat64:
		return key, val.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(val.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, val.Time().UTC().Format(time.RFC3339Nano), true
	}

	switch x := val.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationKey renames duration attributes so the unit is part of the key:
// duration -> duration_ms, startup_duration -> startup_duration_ms, ttl -> ttl_ms.
func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}
