package expense

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Record is a submitted, immutable transaction.
type Record struct {
	ID          string
	UserID      int64
	Date        string
	Category    string
	Subcategory string
	Amount      string
	Description string
	SubmittedAt time.Time
}

// NewRecord freezes a complete draft into a Record with a fresh id.
func NewRecord(userID int64, d Draft, at time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        d.Date.Format(DateLayout),
		Category:    d.Category,
		Subcategory: d.Subcategory,
		Amount:      d.Amount,
		Description: d.Description,
		SubmittedAt: at,
	}
}

// Summary renders the record the same way a confirmed draft is shown.
func (r Record) Summary() string {
	return summaryLine(r.Date, r.Category, r.Subcategory, r.Amount, r.Description)
}

// Recorder receives submitted records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, rec Record) error { return f(ctx, rec) }

// MultiRecorder fans a record out to every recorder and collects all failures.
type MultiRecorder []Recorder

// Record delivers rec to each recorder in order; one failing recorder does not stop the rest.
func (m MultiRecorder) Record(ctx context.Context, rec Record) error {
	var result *multierror.Error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, rec); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
