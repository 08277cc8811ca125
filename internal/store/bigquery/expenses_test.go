package bigquery

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendchat/internal/domain"
	"spendchat/internal/taxonomy"
)

const testDefinition = `1. Food
- Groceries
- Dining out

2. Transportation
- Fuel
- Cab rides
`

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Parse(strings.NewReader(testDefinition))
	if err != nil {
		t.Fatalf("taxonomy.Parse failed: %v", err)
	}
	return tax
}

func TestBuildRowAssignsIdentifierAndTimestamp(t *testing.T) {
	tax := testTaxonomy(t)
	e := &domain.Expense{
		Amount:        decimal.NewFromInt(500),
		Category:      "Food",
		Subcategories: []string{"Dining out"},
		Confirmation:  "Recorded 500 for lunch",
	}

	row, err := buildRow(e, tax)
	if err != nil {
		t.Fatalf("buildRow failed: %v", err)
	}
	if row.ExpenseID == "" {
		t.Error("expected an assigned identifier")
	}
	if row.CreatedTS.IsZero() {
		t.Error("expected a default creation timestamp")
	}
	if row.Amount.FloatString(2) != "500.00" {
		t.Errorf("Amount = %s, want 500.00", row.Amount.FloatString(2))
	}
}

func TestBuildRowKeepsExistingTimestamp(t *testing.T) {
	tax := testTaxonomy(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e := &domain.Expense{
		Amount:        decimal.NewFromInt(300),
		Category:      "Transportation",
		Subcategories: []string{"Cab rides"},
		CreatedAt:     created,
	}

	row, err := buildRow(e, tax)
	if err != nil {
		t.Fatalf("buildRow failed: %v", err)
	}
	if !row.CreatedTS.Equal(created) {
		t.Errorf("CreatedTS = %v, want %v", row.CreatedTS, created)
	}
}

func TestBuildRowRejectsInvalidTaxonomy(t *testing.T) {
	tax := testTaxonomy(t)

	tests := []struct {
		name    string
		expense domain.Expense
		wantErr error
	}{
		{
			name: "unknown category",
			expense: domain.Expense{
				Amount:        decimal.NewFromInt(100),
				Category:      "Gambling",
				Subcategories: []string{"Poker"},
			},
			wantErr: taxonomy.ErrUnknownCategory,
		},
		{
			name: "subcategory from another category",
			expense: domain.Expense{
				Amount:        decimal.NewFromInt(100),
				Category:      "Food",
				Subcategories: []string{"Fuel"},
			},
			wantErr: taxonomy.ErrUnknownSubcategory,
		},
		{
			name: "no subcategories",
			expense: domain.Expense{
				Amount:   decimal.NewFromInt(100),
				Category: "Food",
			},
			wantErr: taxonomy.ErrUnknownSubcategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRow(&tt.expense, tax)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("buildRow() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRowToExpenseRoundTrip(t *testing.T) {
	tax := testTaxonomy(t)
	e := &domain.Expense{
		Amount:        decimal.RequireFromString("2490.00"),
		Category:      "Food",
		Subcategories: []string{"Groceries", "Dining out"},
		Confirmation:  "Recorded 2490 at the market",
	}

	row, err := buildRow(e, tax)
	if err != nil {
		t.Fatalf("buildRow failed: %v", err)
	}
	got := rowToExpense(row)

	if got.ID != row.ExpenseID {
		t.Errorf("ID = %q, want %q", got.ID, row.ExpenseID)
	}
	if !got.Amount.Equal(e.Amount) {
		t.Errorf("Amount = %s, want %s", got.Amount, e.Amount)
	}
	if got.Category != "Food" || len(got.Subcategories) != 2 {
		t.Errorf("unexpected category mapping: %+v", got)
	}
}
