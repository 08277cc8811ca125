// Package bigquery persists expense records to a BigQuery dataset. It is the
// authoritative store; the semantic index holds a derived copy keyed by the
// same identifier.
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendchat/internal/domain"
	"spendchat/internal/taxonomy"
)

const expensesTable = "expenses"

// ExpenseRow is the BigQuery row shape for one expense record.
type ExpenseRow struct {
	ExpenseID     string    `bigquery:"expense_id"`
	Amount        *big.Rat  `bigquery:"amount"` // NUMERIC
	Category      string    `bigquery:"category"`
	Subcategories []string  `bigquery:"subcategories"` // REPEATED
	Confirmation  string    `bigquery:"confirmation_text"`
	CreatedTS     time.Time `bigquery:"created_ts"`
}

// ExpenseRepository is the persistence contract for expense records.
type ExpenseRepository interface {
	// SaveExpense validates the record against the taxonomy, assigns an
	// identifier and creation timestamp, and persists it. The identifier is
	// returned and also written back into the record.
	SaveExpense(ctx context.Context, e *domain.Expense) (string, error)

	// DeleteExpense removes a record by identifier.
	DeleteExpense(ctx context.Context, identifier string) error

	// ListExpenses returns all records in creation order.
	ListExpenses(ctx context.Context) ([]*domain.Expense, error)

	Close() error
}

// BigQueryExpenseRepository is the concrete ExpenseRepository backed by a
// shared BigQuery client.
type BigQueryExpenseRepository struct {
	client   *bigquery.Client
	dataset  string
	taxonomy *taxonomy.Taxonomy
}

// NewExpenseRepository creates a repository for the given project and dataset.
// Category membership is enforced at write time against the taxonomy.
func NewExpenseRepository(ctx context.Context, projectID, dataset string, tax *taxonomy.Taxonomy) (*BigQueryExpenseRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExpenseRepository: creating client: %w", err)
	}
	return &BigQueryExpenseRepository{client: client, dataset: dataset, taxonomy: tax}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryExpenseRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SaveExpense inserts one record. The store assigns the identifier and
// defaults the creation time to now when unset.
func (r *BigQueryExpenseRepository) SaveExpense(ctx context.Context, e *domain.Expense) (string, error) {
	row, err := buildRow(e, r.taxonomy)
	if err != nil {
		return "", fmt.Errorf("SaveExpense: %w", err)
	}

	inserter := r.client.Dataset(r.dataset).Table(expensesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("SaveExpense: inserting row: %w", err)
	}

	e.ID = row.ExpenseID
	e.CreatedAt = row.CreatedTS
	return row.ExpenseID, nil
}

// DeleteExpense removes a record by identifier. Present for test and cleanup
// symmetry with SaveExpense; the interaction loop never updates or deletes.
func (r *BigQueryExpenseRepository) DeleteExpense(ctx context.Context, identifier string) error {
	q := r.client.Query(fmt.Sprintf(`
		DELETE FROM %s.%s
		WHERE expense_id = @expense_id
	`, r.dataset, expensesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: identifier},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("DeleteExpense: running delete query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("DeleteExpense: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("DeleteExpense: job error: %w", err)
	}
	return nil
}

// buildRow validates a record and maps it to its row shape, assigning the
// identifier and creation timestamp.
func buildRow(e *domain.Expense, tax *taxonomy.Taxonomy) (*ExpenseRow, error) {
	if err := tax.Validate(e.Category, e.Subcategories); err != nil {
		return nil, err
	}

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &ExpenseRow{
		ExpenseID:     id,
		Amount:        e.Amount.Rat(),
		Category:      e.Category,
		Subcategories: e.Subcategories,
		Confirmation:  e.Confirmation,
		CreatedTS:     created,
	}, nil
}

// rowToExpense maps a row back to the domain record.
func rowToExpense(row *ExpenseRow) *domain.Expense {
	amount := decimal.Zero
	if row.Amount != nil {
		amount = decimal.NewFromBigRat(row.Amount, 2)
	}
	return &domain.Expense{
		ID:            row.ExpenseID,
		Amount:        amount,
		Category:      row.Category,
		Subcategories: row.Subcategories,
		Confirmation:  row.Confirmation,
		CreatedAt:     row.CreatedTS,
	}
}
