package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

const transactionColumns = `transaction_id, type, amount, date, category, description,
	account_id, daily_budget_id, idempotency_key, created_at`

type TransactionRepository struct {
	q database.Querier
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO transactions (transaction_id, type, amount, date, category, description,
		 account_id, daily_budget_id, idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		tx.TransactionID, tx.Type, tx.Amount, tx.Date, tx.Category, tx.Description,
		tx.AccountID, tx.DailyBudgetID, tx.IdempotencyKey, tx.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`, transactionID)
}

func (r *TransactionRepository) GetForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1 FOR UPDATE`, transactionID)
}

func (r *TransactionRepository) get(ctx context.Context, query, transactionID string) (*models.Transaction, error) {
	tx, err := scanTransaction(r.q.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, notFound(err)
	}
	return tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE transactions SET type = $1, amount = $2, date = $3, category = $4, description = $5,
		 account_id = $6, daily_budget_id = $7
		 WHERE transaction_id = $8`,
		tx.Type, tx.Amount, tx.Date, tx.Category, tx.Description, tx.AccountID, tx.DailyBudgetID,
		tx.TransactionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, transactionID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) ExistsByKeyPrefix(ctx context.Context, prefix string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE starts_with(idempotency_key, $1))`,
		prefix,
	).Scan(&exists)
	return exists, err
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	if err := row.Scan(&tx.TransactionID, &tx.Type, &tx.Amount, &tx.Date, &tx.Category,
		&tx.Description, &tx.AccountID, &tx.DailyBudgetID, &tx.IdempotencyKey, &tx.CreatedAt); err != nil {
		return nil, err
	}
	return tx, nil
}

func scanTransactions(rows rowsScanner) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
