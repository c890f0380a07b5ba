package expense

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is a step of the expense conversation.
type State string

const (
	// StateIdle means the user has no draft.
	StateIdle            State = "idle"
	AwaitingDate         State = "awaiting_date"
	AwaitingCategory     State = "awaiting_category"
	AwaitingSubcategory  State = "awaiting_subcategory"
	AwaitingAmount       State = "awaiting_amount"
	AwaitingDescription  State = "awaiting_description"
	AwaitingConfirmation State = "awaiting_confirmation"
)

// Outcome tells the caller what to do with the draft after a step.
type Outcome int

const (
	// Continue keeps the draft in the store under the returned state.
	Continue Outcome = iota
	// Submitted means the draft was confirmed and must be recorded and discarded.
	Submitted
	// Cancelled means the draft must be discarded.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Submitted:
		return "submitted"
	case Cancelled:
		return "cancelled"
	default:
		return "ok"
	}
}

// ErrUnrecognized marks input that does not fit the current state.
var ErrUnrecognized = errors.New("expense: unrecognized input")

// Button labels.
const (
	ButtonToday     = "Today"
	ButtonYesterday = "Yesterday"
	ButtonEnterDate = "Enter Date"
	ButtonSubmit    = "Submit"
	ButtonCancel    = "Cancel"
)

// User-facing texts.
const (
	PromptDate         = "Please select a date for the transaction:"
	PromptManualDate   = "Please enter the date in the format 'DD MM YYYY' (e.g., 06 02 2025)."
	PromptCategory     = "Now, please select a category:"
	PromptSubcategory  = "Select a subcategory:"
	PromptAmount       = "Please enter the amount:"
	PromptDescription  = "Please enter a description:"
	ReplyInvalidDate   = "Invalid date format. Please enter the date in 'DD MM YYYY' format."
	ReplyCancelled     = "Your record is canceled."
	ReplyFallback      = "I didn't understand that command."
	confirmationFormat = "This is your record: %s. Do you want to submit it?"
	submittedFormat    = "Submitted: %s"
)

const categoryColumns = 4

// Reply is the single outbound message of a step.
// Options are quick-reply labels laid out Columns per row; no options means
// any previous keyboard should be removed unless Keep is set.
type Reply struct {
	Text    string
	Options []string
	Columns int
	// Keep leaves the user's current keyboard untouched.
	Keep bool
}

// Step is the result of one transition.
// For Submitted and Cancelled, Draft is the final draft and the caller discards it.
type Step struct {
	State   State
	Draft   Draft
	Reply   Reply
	Outcome Outcome
	// Err is ErrInvalidDate or ErrUnrecognized when the input was rejected.
	Err error
}

type stepFunc func(d Draft, text string) Step

// Flow is the expense form state machine. It is stateless between calls and
// safe for concurrent use.
type Flow struct {
	catalog  *Catalog
	clock    Clock
	handlers map[State]stepFunc
}

// NewFlow builds a Flow over catalog; a nil catalog selects DefaultCatalog.
func NewFlow(catalog *Catalog, clock Clock) *Flow {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	f := &Flow{catalog: catalog, clock: clock}
	f.handlers = map[State]stepFunc{
		AwaitingDate:         f.onDate,
		AwaitingCategory:     f.onCategory,
		AwaitingSubcategory:  f.onSubcategory,
		AwaitingAmount:       f.onAmount,
		AwaitingDescription:  f.onDescription,
		AwaitingConfirmation: f.onConfirmation,
	}
	return f
}

// Start opens a fresh draft and asks for the date.
func (f *Flow) Start() Step {
	return Step{
		State: AwaitingDate,
		Reply: dateReply(),
	}
}

// Handle performs one transition for text received in state st.
// Rejected input leaves state and draft untouched.
func (f *Flow) Handle(st State, d Draft, text string) Step {
	h, ok := f.handlers[st]
	if !ok || strings.TrimSpace(text) == "" {
		return fallback(st, d)
	}
	return h(d, text)
}

func (f *Flow) onDate(d Draft, text string) Step {
	choice := strings.TrimSpace(text)
	switch {
	case choice == ButtonToday:
		return f.withDate(d, f.clock.Today())
	case choice == ButtonYesterday:
		return f.withDate(d, f.clock.Yesterday())
	case choice == ButtonEnterDate:
		d.EnteringDate = true
		return Step{
			State: AwaitingDate,
			Draft: d,
			Reply: Reply{Text: PromptManualDate, Options: []string{ButtonCancel}, Columns: 1},
		}
	case d.EnteringDate && choice == ButtonCancel:
		return cancelled(d)
	case d.EnteringDate || looksLikeDate(choice):
		date, err := ParseDate(choice, f.clock.Loc)
		if err != nil {
			reply := Reply{Text: ReplyInvalidDate}
			if d.EnteringDate {
				reply.Options, reply.Columns = []string{ButtonCancel}, 1
			} else {
				reply.Options, reply.Columns = dateReply().Options, 3
			}
			return Step{State: AwaitingDate, Draft: d, Reply: reply, Err: err}
		}
		return f.withDate(d, date)
	}
	return fallback(AwaitingDate, d)
}

func (f *Flow) withDate(d Draft, date time.Time) Step {
	d.Date = date
	d.EnteringDate = false
	return Step{
		State: AwaitingCategory,
		Draft: d,
		Reply: Reply{Text: PromptCategory, Options: f.catalog.Names(), Columns: categoryColumns},
	}
}

func (f *Flow) onCategory(d Draft, text string) Step {
	cat, ok := f.catalog.Lookup(strings.TrimSpace(text))
	if !ok {
		return fallback(AwaitingCategory, d)
	}
	d.Category = cat.Name
	d.Subcategory = ""
	if cat.HasSubcategories() {
		return Step{
			State: AwaitingSubcategory,
			Draft: d,
			Reply: Reply{Text: PromptSubcategory, Options: cat.Subcategories, Columns: 1},
		}
	}
	return Step{State: AwaitingAmount, Draft: d, Reply: Reply{Text: PromptAmount}}
}

func (f *Flow) onSubcategory(d Draft, text string) Step {
	d.Subcategory = text
	return Step{State: AwaitingAmount, Draft: d, Reply: Reply{Text: PromptAmount}}
}

func (f *Flow) onAmount(d Draft, text string) Step {
	if isCommand(text) {
		return fallback(AwaitingAmount, d)
	}
	d.Amount = text
	return Step{State: AwaitingDescription, Draft: d, Reply: Reply{Text: PromptDescription}}
}

func (f *Flow) onDescription(d Draft, text string) Step {
	if isCommand(text) {
		return fallback(AwaitingDescription, d)
	}
	d.Description = text
	return Step{
		State: AwaitingConfirmation,
		Draft: d,
		Reply: Reply{
			Text:    fmt.Sprintf(confirmationFormat, d.Summary()),
			Options: []string{ButtonSubmit, ButtonCancel},
			Columns: 2,
		},
	}
}

func (f *Flow) onConfirmation(d Draft, text string) Step {
	switch strings.TrimSpace(text) {
	case ButtonSubmit:
		if !d.Complete() {
			return fallback(AwaitingConfirmation, d)
		}
		return Step{
			State:   StateIdle,
			Draft:   d,
			Reply:   Reply{Text: fmt.Sprintf(submittedFormat, d.Summary())},
			Outcome: Submitted,
		}
	case ButtonCancel:
		return cancelled(d)
	}
	return fallback(AwaitingConfirmation, d)
}

func dateReply() Reply {
	return Reply{
		Text:    PromptDate,
		Options: []string{ButtonToday, ButtonYesterday, ButtonEnterDate},
		Columns: 3,
	}
}

func cancelled(d Draft) Step {
	return Step{
		State:   StateIdle,
		Draft:   d,
		Reply:   Reply{Text: ReplyCancelled},
		Outcome: Cancelled,
	}
}

// Cancel discards a draft from any state, e.g. on /cancel.
func (f *Flow) Cancel(d Draft) Step { return cancelled(d) }

func fallback(st State, d Draft) Step {
	return Step{
		State: st,
		Draft: d,
		Reply: Reply{Text: ReplyFallback, Keep: true},
		Err:   ErrUnrecognized,
	}
}

// isCommand reports slash-prefixed text, which never counts as form input.
func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}
