package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"spendchat/internal/domain"
)

// ListExpenses returns every stored record in creation order. Used by the
// Notion sync binary; the interactive loop reads through the semantic index
// instead.
func (r *BigQueryExpenseRepository) ListExpenses(ctx context.Context) ([]*domain.Expense, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			expense_id,
			amount,
			category,
			subcategories,
			confirmation_text,
			created_ts
		FROM %s.%s
		ORDER BY created_ts
	`, r.dataset, expensesTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: running query: %w", err)
	}

	var expenses []*domain.Expense
	for {
		var row ExpenseRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: reading row: %w", err)
		}
		expenses = append(expenses, rowToExpense(&row))
	}
	return expenses, nil
}
