package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

const accountColumns = `account_id, name, type, balance, color, description, created_at`

type AccountRepository struct {
	q database.Querier
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO accounts (account_id, name, type, balance, color, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.AccountID, a.Name, a.Type, a.Balance, a.Color, a.Description, a.CreatedAt,
	)
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`,
		accountID,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at, account_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) FirstByType(ctx context.Context, accountType models.AccountType) (*models.Account, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE type = $1
		 ORDER BY created_at, account_id LIMIT 1`,
		accountType,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE accounts SET balance = $1 WHERE account_id = $2`,
		balance, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE account_id = $2`,
		delta, accountID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanAccount(row scanner) (*models.Account, error) {
	a := &models.Account{}
	if err := row.Scan(&a.AccountID, &a.Name, &a.Type, &a.Balance, &a.Color, &a.Description, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}
