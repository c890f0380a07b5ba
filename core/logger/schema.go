package logger

import (
	"slices"
	"strings"
)

// Level names written to the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// Vocabularies of the status and outcome fields.
var (
	statuses = []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled", "evicted", "denied"}
	outcomes = []string{"ok", "fail", "cancelled", "submitted", "fallback", "rate_limited"}
)

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "", "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status; ok is false for values outside statuses.
func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	return status, slices.Contains(statuses, status)
}

// normalizeOutcome lowercases outcome; ok is false for values outside outcomes.
func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, slices.Contains(outcomes, outcome)
}

// defaultKeyOrder puts the fields people grep for first: envelope, update
// identity, conversation, expense draft, then transport details.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type",
	"handler", "state", "next_state", "outcome", "duration_ms", "messages", "kb",
	"category", "subcategory", "date", "amount", "description", "record_id",
	"sessions", "evicted",
	"payload", "lang", "username",
	"mode", "listen", "public_url",
	"http_code", "action", "endpoint",
	"err", "err_code", "cause", "retryable", "attempts", "backoff_ms", "rate_limited",
}
