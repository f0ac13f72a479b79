package postgres

import (
	"context"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

type BudgetRepository struct {
	q database.Querier
}

func (r *BudgetRepository) Create(ctx context.Context, b *models.Budget) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO budgets (budget_id, category, "limit", recurring, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.BudgetID, b.Category, b.Limit, b.Recurring, b.CreatedAt,
	)
	return err
}

func (r *BudgetRepository) List(ctx context.Context) ([]*models.Budget, error) {
	rows, err := r.q.Query(ctx,
		`SELECT budget_id, category, "limit", recurring, created_at
		 FROM budgets ORDER BY created_at, budget_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []*models.Budget
	for rows.Next() {
		b := &models.Budget{}
		if err := rows.Scan(&b.BudgetID, &b.Category, &b.Limit, &b.Recurring, &b.CreatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *BudgetRepository) Delete(ctx context.Context, budgetID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM budgets WHERE budget_id = $1`, budgetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
