package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

const dailyBudgetColumns = `budget_id, name, category, "limit", days_of_week, description, items,
	auto_create, account_id, created_at`

type DailyBudgetRepository struct {
	q database.Querier
}

func (r *DailyBudgetRepository) Create(ctx context.Context, b *models.DailyBudget) error {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	_, err = r.q.Exec(ctx,
		`INSERT INTO daily_budgets (budget_id, name, category, "limit", days_of_week, description, items,
		 auto_create, account_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.BudgetID, b.Name, b.Category, b.Limit, b.DaysOfWeek, b.Description, items,
		b.AutoCreate, b.AccountID, b.CreatedAt,
	)
	return err
}

func (r *DailyBudgetRepository) GetByID(ctx context.Context, budgetID string) (*models.DailyBudget, error) {
	b, err := scanDailyBudget(r.q.QueryRow(ctx,
		`SELECT `+dailyBudgetColumns+` FROM daily_budgets WHERE budget_id = $1`,
		budgetID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (r *DailyBudgetRepository) List(ctx context.Context) ([]*models.DailyBudget, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+dailyBudgetColumns+` FROM daily_budgets ORDER BY created_at, budget_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []*models.DailyBudget
	for rows.Next() {
		b, err := scanDailyBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *DailyBudgetRepository) Update(ctx context.Context, b *models.DailyBudget) error {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE daily_budgets SET name = $1, category = $2, "limit" = $3, days_of_week = $4,
		 description = $5, items = $6, auto_create = $7, account_id = $8
		 WHERE budget_id = $9`,
		b.Name, b.Category, b.Limit, b.DaysOfWeek, b.Description, items, b.AutoCreate, b.AccountID,
		b.BudgetID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DailyBudgetRepository) Delete(ctx context.Context, budgetID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM daily_budgets WHERE budget_id = $1`, budgetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDailyBudget(row scanner) (*models.DailyBudget, error) {
	b := &models.DailyBudget{}
	var items []byte
	if err := row.Scan(&b.BudgetID, &b.Name, &b.Category, &b.Limit, &b.DaysOfWeek, &b.Description,
		&items, &b.AutoCreate, &b.AccountID, &b.CreatedAt); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &b.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of %s: %w", b.BudgetID, err)
		}
	}
	return b, nil
}
