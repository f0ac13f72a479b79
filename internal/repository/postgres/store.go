// Package postgres implements repository.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/repository"
)

// schedulerLockKey identifies the advisory lock taken by detection runs.
const schedulerLockKey int64 = 0x6c65646765720001

type Store struct {
	db   *database.DB
	q    database.Querier
	inTx bool
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db, q: db.Pool}
}

func (s *Store) Accounts() repository.AccountRepository {
	return &AccountRepository{q: s.q}
}

func (s *Store) Transactions() repository.TransactionRepository {
	return &TransactionRepository{q: s.q}
}

func (s *Store) RecurringPayments() repository.RecurringPaymentRepository {
	return &RecurringPaymentRepository{q: s.q}
}

func (s *Store) DailyBudgets() repository.DailyBudgetRepository {
	return &DailyBudgetRepository{q: s.q}
}

func (s *Store) Budgets() repository.BudgetRepository {
	return &BudgetRepository{q: s.q}
}

func (s *Store) PendingPayments() repository.PendingPaymentRepository {
	return &PendingPaymentRepository{q: s.q}
}

func (s *Store) Settings() repository.SettingsRepository {
	return &SettingsRepository{q: s.q}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&Store{db: s.db, q: tx, inTx: true})
	})
}

func (s *Store) LockScheduler(ctx context.Context) error {
	if !s.inTx {
		return errors.New("scheduler lock requires a transaction")
	}
	_, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schedulerLockKey)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	scanner
	Next() bool
	Err() error
}

// notFound maps pgx.ErrNoRows to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
