package expense

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	at := time.Date(2025, 2, 6, 10, 0, 0, 0, time.UTC)
	d := Draft{Date: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), Category: "Grocery", Amount: "12", Description: "milk"}

	rec := NewRecord(7, d, at)
	_, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7), rec.UserID)
	require.Equal(t, "2025-02-05", rec.Date)
	require.Equal(t, at, rec.SubmittedAt)
	require.Equal(t, d.Summary(), rec.Summary())
	require.NotEqual(t, rec.ID, NewRecord(7, d, at).ID)
}

func TestMultiRecorderCollectsErrors(t *testing.T) {
	var seen []string
	errA := errors.New("a failed")
	errC := errors.New("c failed")

	m := MultiRecorder{
		RecorderFunc(func(context.Context, Record) error { seen = append(seen, "a"); return errA }),
		nil,
		RecorderFunc(func(context.Context, Record) error { seen = append(seen, "b"); return nil }),
		RecorderFunc(func(context.Context, Record) error { seen = append(seen, "c"); return errC }),
	}

	err := m.Record(context.Background(), Record{ID: "x"})
	require.Equal(t, []string{"a", "b", "c"}, seen)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errC)

	require.NoError(t, MultiRecorder{}.Record(context.Background(), Record{}))
}

func TestRecordSummaryMatchesDraft(t *testing.T) {
	day := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		draft Draft
		want  string
	}{
		{
			name:  "without subcategory",
			draft: Draft{Date: day, Category: "Grocery", Amount: "12", Description: "milk"},
			want:  "2025-02-05 - Grocery - N/A - 12 - milk",
		},
		{
			name:  "with subcategory",
			draft: Draft{Date: day, Category: "Vehicle", Subcategory: "Gas", Amount: "45.20", Description: "Shell"},
			want:  "2025-02-05 - Vehicle - Gas - 45.20 - Shell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord(1, tt.draft, day)
			require.Equal(t, tt.want, tt.draft.Summary())
			require.Equal(t, tt.want, rec.Summary())
		})
	}
}
