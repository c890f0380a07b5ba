package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/expensebot/core/logger"
	tghelpers "github.com/m3rciful/expensebot/core/telegram/helpers"
	"github.com/m3rciful/expensebot/internal/expense"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned by AdminNotifier before the bot is running.
var ErrNotBound = errors.New("admin notifier: bot not bound")

// LogRecorder writes each submitted record as a structured log event.
type LogRecorder struct{}

// Record implements expense.Recorder.
func (LogRecorder) Record(ctx context.Context, rec expense.Record) error {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("outcome", "submitted"),
		slog.String("record_id", rec.ID),
		slog.String("date", rec.Date),
		slog.String("category", rec.Category),
	}
	if rec.Subcategory != "" {
		attrs = append(attrs, slog.String("subcategory", logger.SanitizeLimit(rec.Subcategory, 64)))
	}
	attrs = append(attrs,
		slog.String("amount", logger.SanitizeLimit(rec.Amount, 64)),
		slog.String("description", logger.SanitizeLimit(rec.Description, 256)),
	)
	logger.Info(ctx, "expense", "transaction.submitted", attrs...)
	return nil
}

// AdminNotifier forwards submitted records to the admin chat.
// It stays unbound until the bot runtime starts.
type AdminNotifier struct {
	adminID int64

	mu     sync.RWMutex
	sender tghelpers.Sender
}

// NewAdminNotifier creates a notifier for adminID.
func NewAdminNotifier(adminID int64) *AdminNotifier {
	return &AdminNotifier{adminID: adminID}
}

// Bind attaches the live bot.
func (n *AdminNotifier) Bind(s tghelpers.Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sender = s
}

// Record implements expense.Recorder.
func (n *AdminNotifier) Record(ctx context.Context, rec expense.Record) error {
	n.mu.RLock()
	s := n.sender
	n.mu.RUnlock()
	if s == nil {
		return ErrNotBound
	}
	// the admin chat gets its own ordering lane
	ctx = logger.WithUpdateMeta(ctx, logger.UpdateIDFrom(ctx), logger.UserIDFrom(ctx), n.adminID)
	text := fmt.Sprintf("New record from %d: %s", rec.UserID, rec.Summary())
	if err := tghelpers.SendTo(ctx, s, &tele.User{ID: n.adminID}, text); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	return nil
}
