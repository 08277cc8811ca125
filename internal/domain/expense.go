package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is an expense as extracted by the model, currency-normalized but
// not yet validated against the category taxonomy. It must not be persisted
// until it has been promoted.
type Candidate struct {
	Amount        decimal.Decimal // reporting currency (INR)
	Category      string
	Subcategories []string // non-empty, ordered as extracted
	Confirmation  string   // human-readable confirmation text from the model
}

// Expense is the persistent record. The identifier is assigned by the store on
// creation; records are immutable afterwards.
type Expense struct {
	ID            string
	Amount        decimal.Decimal
	Category      string
	Subcategories []string
	Confirmation  string
	CreatedAt     time.Time
}

// FromCandidate builds an unsaved Expense from a validated candidate. The
// caller is expected to have checked the candidate against the taxonomy first;
// the store repeats the check at write time.
func FromCandidate(c Candidate) *Expense {
	subs := make([]string, len(c.Subcategories))
	copy(subs, c.Subcategories)
	return &Expense{
		Amount:        c.Amount,
		Category:      c.Category,
		Subcategories: subs,
		Confirmation:  c.Confirmation,
	}
}
