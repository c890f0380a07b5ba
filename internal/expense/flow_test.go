package expense

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var berlin = time.FixedZone("CET", 3600)

func testFlow() *Flow {
	return NewFlow(DefaultCatalog(), Clock{
		Now: func() time.Time { return time.Date(2025, 2, 6, 23, 30, 0, 0, time.UTC) },
		Loc: berlin,
	})
}

// drive feeds inputs starting from /start and returns every step.
func drive(t *testing.T, f *Flow, inputs ...string) []Step {
	t.Helper()
	step := f.Start()
	steps := []Step{step}
	for _, in := range inputs {
		step = f.Handle(step.State, step.Draft, in)
		steps = append(steps, step)
	}
	return steps
}

func last(steps []Step) Step { return steps[len(steps)-1] }

func TestStartPromptsForDate(t *testing.T) {
	step := testFlow().Start()
	require.Equal(t, AwaitingDate, step.State)
	require.Equal(t, Draft{}, step.Draft)
	require.Equal(t, PromptDate, step.Reply.Text)
	require.Equal(t, []string{"Today", "Yesterday", "Enter Date"}, step.Reply.Options)
}

func TestDateSelection(t *testing.T) {
	testTable := []struct {
		name     string
		inputs   []string
		wantDate string
	}{
		// 23:30 UTC is already the 7th in CET
		{name: "today in configured zone", inputs: []string{"Today"}, wantDate: "2025-02-07"},
		{name: "yesterday", inputs: []string{"Yesterday"}, wantDate: "2025-02-06"},
		{name: "manual entry", inputs: []string{"Enter Date", "06 02 2025"}, wantDate: "2025-02-06"},
		{name: "typed without button", inputs: []string{"06 02 2025"}, wantDate: "2025-02-06"},
		{name: "single digits", inputs: []string{"Enter Date", "6 2 2025"}, wantDate: "2025-02-06"},
		{name: "extra spaces", inputs: []string{"Enter Date", "  06   02 2025 "}, wantDate: "2025-02-06"},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			step := last(drive(t, testFlow(), testCase.inputs...))
			require.NoError(t, step.Err)
			require.Equal(t, AwaitingCategory, step.State)
			require.Equal(t, testCase.wantDate, step.Draft.Date.Format(DateLayout))
			require.False(t, step.Draft.EnteringDate)
			require.Equal(t, PromptCategory, step.Reply.Text)
			require.Equal(t, DefaultCatalog().Names(), step.Reply.Options)
			require.Equal(t, 4, step.Reply.Columns)
		})
	}
}

func TestEnterDateRePrompts(t *testing.T) {
	step := last(drive(t, testFlow(), "Enter Date"))
	require.Equal(t, AwaitingDate, step.State)
	require.True(t, step.Draft.EnteringDate)
	require.Equal(t, PromptManualDate, step.Reply.Text)
	require.Equal(t, []string{"Cancel"}, step.Reply.Options)
}

func TestInvalidDateKeepsState(t *testing.T) {
	testTable := []struct {
		name   string
		inputs []string
	}{
		{name: "month out of range", inputs: []string{"Enter Date", "31 13 2025"}},
		{name: "day out of range", inputs: []string{"Enter Date", "30 02 2025"}},
		{name: "year zero", inputs: []string{"Enter Date", "06 02 0000"}},
		{name: "typed invalid date", inputs: []string{"31 13 2025"}},
		{name: "words while entering", inputs: []string{"Enter Date", "next friday"}},
		{name: "short year", inputs: []string{"Enter Date", "06 02 25"}},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			steps := drive(t, testFlow(), testCase.inputs...)
			before, after := steps[len(steps)-2], last(steps)
			require.ErrorIs(t, after.Err, ErrInvalidDate)
			require.Equal(t, AwaitingDate, after.State)
			require.Equal(t, before.Draft, after.Draft)
			require.Equal(t, ReplyInvalidDate, after.Reply.Text)
			require.Equal(t, Continue, after.Outcome)
		})
	}
}

func TestCancelWhileEnteringDate(t *testing.T) {
	step := last(drive(t, testFlow(), "Enter Date", "Cancel"))
	require.Equal(t, Cancelled, step.Outcome)
	require.Equal(t, ReplyCancelled, step.Reply.Text)
}

func TestCategoryRouting(t *testing.T) {
	testTable := []struct {
		category  string
		wantState State
		wantText  string
		wantOpts  []string
	}{
		{category: "Grocery", wantState: AwaitingAmount, wantText: PromptAmount},
		{category: "Vehicle", wantState: AwaitingSubcategory, wantText: PromptSubcategory, wantOpts: []string{"Gas", "Financial", "Maintenance"}},
		{category: "Utilities", wantState: AwaitingSubcategory, wantText: PromptSubcategory, wantOpts: []string{"Gas", "Electricity", "Others"}},
		{category: "Home", wantState: AwaitingSubcategory, wantText: PromptSubcategory, wantOpts: []string{"Rent", "Other"}},
		{category: "Sana", wantState: AwaitingSubcategory, wantText: PromptSubcategory, wantOpts: []string{"Cloth", "Other"}},
	}

	for _, testCase := range testTable {
		t.Run(testCase.category, func(t *testing.T) {
			step := last(drive(t, testFlow(), "Today", testCase.category))
			require.NoError(t, step.Err)
			require.Equal(t, testCase.wantState, step.State)
			require.Equal(t, testCase.category, step.Draft.Category)
			require.Equal(t, testCase.wantText, step.Reply.Text)
			require.Equal(t, testCase.wantOpts, step.Reply.Options)
		})
	}
}

func TestUnknownCategoryFallsBack(t *testing.T) {
	steps := drive(t, testFlow(), "Today", "Pets")
	step := last(steps)
	require.ErrorIs(t, step.Err, ErrUnrecognized)
	require.Equal(t, AwaitingCategory, step.State)
	require.Equal(t, steps[1].Draft, step.Draft)
	require.Equal(t, ReplyFallback, step.Reply.Text)
	require.True(t, step.Reply.Keep)
}

func TestSubcategoryAcceptsAnyText(t *testing.T) {
	step := last(drive(t, testFlow(), "Today", "Vehicle", "Tolls"))
	require.Equal(t, AwaitingAmount, step.State)
	require.Equal(t, "Tolls", step.Draft.Subcategory)
}

func TestFullSubmission(t *testing.T) {
	steps := drive(t, testFlow(), "Yesterday", "Vehicle", "Gas", "45.20", "Shell station", "Submit")

	confirm := steps[len(steps)-2]
	require.Equal(t, AwaitingConfirmation, confirm.State)
	require.True(t, confirm.Draft.Complete())
	require.Equal(t,
		"This is your record: 2025-02-06 - Vehicle - Gas - 45.20 - Shell station. Do you want to submit it?",
		confirm.Reply.Text)
	require.Equal(t, []string{"Submit", "Cancel"}, confirm.Reply.Options)

	done := last(steps)
	require.Equal(t, Submitted, done.Outcome)
	require.Equal(t, StateIdle, done.State)
	require.Equal(t, "Submitted: 2025-02-06 - Vehicle - Gas - 45.20 - Shell station", done.Reply.Text)
	require.Empty(t, done.Reply.Options)
}

func TestSubmissionWithoutSubcategoryShowsNA(t *testing.T) {
	step := last(drive(t, testFlow(), "06 02 2025", "Grocery", "12", "milk", "Submit"))
	require.Equal(t, "Submitted: 2025-02-06 - Grocery - N/A - 12 - milk", step.Reply.Text)
}

func TestConfirmationCancel(t *testing.T) {
	step := last(drive(t, testFlow(), "Today", "Grocery", "12", "milk", "Cancel"))
	require.Equal(t, Cancelled, step.Outcome)
	require.Equal(t, ReplyCancelled, step.Reply.Text)
	require.NotContains(t, step.Reply.Text, "milk")
}

func TestConfirmationRejectsOtherText(t *testing.T) {
	steps := drive(t, testFlow(), "Today", "Grocery", "12", "milk", "maybe")
	step := last(steps)
	require.ErrorIs(t, step.Err, ErrUnrecognized)
	require.Equal(t, AwaitingConfirmation, step.State)
	require.Equal(t, Continue, step.Outcome)
}

func TestFallbackEverywhere(t *testing.T) {
	f := testFlow()

	testTable := []struct {
		name  string
		state State
		text  string
	}{
		{name: "banana at date", state: AwaitingDate, text: "Banana"},
		{name: "cancel outside manual entry", state: AwaitingDate, text: "Cancel"},
		{name: "empty text", state: AwaitingAmount, text: ""},
		{name: "whitespace", state: AwaitingSubcategory, text: "   "},
		{name: "command as amount", state: AwaitingAmount, text: "/help"},
		{name: "command as description", state: AwaitingDescription, text: "/help"},
		{name: "idle", state: StateIdle, text: "Today"},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			d := Draft{Category: "Grocery"}
			step := f.Handle(testCase.state, d, testCase.text)
			require.ErrorIs(t, step.Err, ErrUnrecognized)
			require.Equal(t, testCase.state, step.State)
			require.Equal(t, d, step.Draft)
			require.Equal(t, ReplyFallback, step.Reply.Text)
		})
	}
}

func TestCancelFromAnyState(t *testing.T) {
	step := testFlow().Cancel(Draft{Category: "Home"})
	require.Equal(t, Cancelled, step.Outcome)
	require.Equal(t, StateIdle, step.State)
	require.Equal(t, ReplyCancelled, step.Reply.Text)
}
