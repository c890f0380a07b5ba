package expense

import (
	"fmt"
	"time"
)

// DateLayout is how dates appear in summaries and records.
const DateLayout = "2006-01-02"

// NotApplicable stands in for a missing subcategory.
const NotApplicable = "N/A"

// Draft is the in-progress transaction of one user.
type Draft struct {
	Date        time.Time
	Category    string
	Subcategory string
	Amount      string
	Description string
	// EnteringDate is set after "Enter Date" while the user types a date by hand.
	EnteringDate bool
}

// HasDate reports whether a date was chosen.
func (d Draft) HasDate() bool { return !d.Date.IsZero() }

// Complete reports whether the draft can be confirmed.
func (d Draft) Complete() bool {
	return d.HasDate() && d.Category != "" && d.Amount != "" && d.Description != ""
}

// Summary renders "{date} - {category} - {subcategory|N/A} - {amount} - {description}".
func (d Draft) Summary() string {
	return summaryLine(d.Date.Format(DateLayout), d.Category, d.Subcategory, d.Amount, d.Description)
}

func summaryLine(date, category, sub, amount, description string) string {
	if sub == "" {
		sub = NotApplicable
	}
	return fmt.Sprintf("%s - %s - %s - %s - %s", date, category, sub, amount, description)
}
