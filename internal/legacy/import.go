package legacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/hray3182/ledgerline/internal/repository"
)

// ErrStoreNotEmpty is returned when the target store already holds accounts
// or transactions.
var ErrStoreNotEmpty = errors.New("store is not empty")

type Result struct {
	Accounts          int
	Transactions      int
	RecurringPayments int
	DailyBudgets      int
	Budgets           int
	PendingPayments   int
	// DuplicatePending counts pending payments dropped for a taken key.
	DuplicatePending int
}

// Import writes exp into st in one store transaction. Account balances are
// taken as exported; transactions are inserted without touching them since
// the old backend already applied their effect.
func Import(ctx context.Context, st repository.Store, exp *Export) (Result, error) {
	var res Result
	err := st.WithinTx(ctx, func(tx repository.Store) error {
		res = Result{}
		if err := ensureEmpty(ctx, tx); err != nil {
			return err
		}

		for _, a := range exp.Accounts {
			if err := tx.Accounts().Create(ctx, a); err != nil {
				return fmt.Errorf("failed to import account %s: %w", a.AccountID, err)
			}
			res.Accounts++
		}
		for _, t := range exp.Transactions {
			if _, err := tx.Transactions().Create(ctx, t); err != nil {
				return fmt.Errorf("failed to import transaction %s: %w", t.TransactionID, err)
			}
			res.Transactions++
		}
		for _, p := range exp.RecurringPayments {
			if err := tx.RecurringPayments().Create(ctx, p); err != nil {
				return fmt.Errorf("failed to import recurring payment %s: %w", p.PaymentID, err)
			}
			res.RecurringPayments++
		}
		for _, b := range exp.DailyBudgets {
			if err := tx.DailyBudgets().Create(ctx, b); err != nil {
				return fmt.Errorf("failed to import daily budget %s: %w", b.BudgetID, err)
			}
			res.DailyBudgets++
		}
		for _, b := range exp.Budgets {
			if err := tx.Budgets().Create(ctx, b); err != nil {
				return fmt.Errorf("failed to import budget %s: %w", b.BudgetID, err)
			}
			res.Budgets++
		}
		for _, p := range exp.PendingPayments {
			created, err := tx.PendingPayments().Create(ctx, p)
			if err != nil {
				return fmt.Errorf("failed to import pending payment %s: %w", p.PendingID, err)
			}
			if !created {
				res.DuplicatePending++
				continue
			}
			res.PendingPayments++
		}

		if exp.InitialBalance != nil {
			if err := tx.Settings().Set(ctx, repository.SettingInitialBalance, exp.InitialBalance.String()); err != nil {
				return fmt.Errorf("failed to import initial balance: %w", err)
			}
		}
		if exp.DefaultAccountID != "" {
			if err := tx.Settings().Set(ctx, repository.SettingDefaultAccountID, exp.DefaultAccountID); err != nil {
				return fmt.Errorf("failed to import default account: %w", err)
			}
		}
		return nil
	})
	return res, err
}

func ensureEmpty(ctx context.Context, st repository.Store) error {
	accounts, err := st.Accounts().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	txs, err := st.Transactions().List(ctx, repository.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	if len(accounts) > 0 || len(txs) > 0 {
		return fmt.Errorf("%w: %d accounts, %d transactions", ErrStoreNotEmpty, len(accounts), len(txs))
	}
	return nil
}
