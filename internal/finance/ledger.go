package finance

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

type AccountInput struct {
	Name           string             `json:"name"`
	Type           models.AccountType `json:"type"`
	InitialBalance decimal.Decimal    `json:"initial_balance"`
	Color          string             `json:"color"`
	Description    string             `json:"description"`
}

func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("account name is required")
	}
	if !in.Type.IsValid() {
		return nil, invalidInput("unknown account type %q", in.Type)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account := &models.Account{
		AccountID:   newID(),
		Name:        name,
		Type:        in.Type,
		Balance:     in.InitialBalance,
		Color:       in.Color,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, storeErr("create account", err)
	}
	s.changed()
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, storeErr("get account", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	return accounts, nil
}

// DeleteAccount removes the account. Transactions that referenced it keep
// the dangling id.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.Accounts().Delete(ctx, accountID); err != nil {
		return storeErr("delete account", err)
	}
	s.changed()
	return nil
}

// SetBalance overrides the balance without touching transaction history.
func (s *Service) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.Accounts().SetBalance(ctx, accountID, balance); err != nil {
		return storeErr("set balance", err)
	}
	s.changed()
	return nil
}

// applyDelta adjusts the balance of an optional account. A missing account
// is logged and skipped.
func applyDelta(ctx context.Context, st repository.Store, accountID *string, delta decimal.Decimal) error {
	if accountID == nil || *accountID == "" || delta.IsZero() {
		return nil
	}
	ok, err := st.Accounts().ApplyDelta(ctx, *accountID, delta)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("Account %s not found, balance change of %s skipped", *accountID, delta)
	}
	return nil
}

type TransactionInput struct {
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Date          time.Time              `json:"date"`
	Category      string                 `json:"category"`
	Description   string                 `json:"description"`
	AccountID     *string                `json:"account_id"`
	DailyBudgetID *string                `json:"daily_budget_id"`
}

func (s *Service) validateTransaction(in TransactionInput) (TransactionInput, error) {
	if !in.Type.IsValid() {
		return in, invalidInput("unknown transaction type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return in, ErrInvalidAmount
	}
	if in.AccountID != nil && *in.AccountID == "" {
		in.AccountID = nil
	}
	in.Category = strings.TrimSpace(in.Category)
	return in, nil
}

// post writes the transaction and applies its effect to the account. It
// reports false when the idempotency key was already used; nothing changes then.
func (s *Service) post(ctx context.Context, st repository.Store, tx *models.Transaction) (bool, error) {
	created, err := st.Transactions().Create(ctx, tx)
	if err != nil || !created {
		return false, err
	}
	if err := applyDelta(ctx, st, tx.AccountID, tx.SignedAmount()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) PostTransaction(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	in, err := s.validateTransaction(in)
	if err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		log.Printf("Transaction without a valid date, using current time")
		in.Date = s.now()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx := &models.Transaction{
		TransactionID: newID(),
		Type:          in.Type,
		Amount:        in.Amount,
		Date:          in.Date,
		Category:      in.Category,
		Description:   in.Description,
		AccountID:     in.AccountID,
		DailyBudgetID: in.DailyBudgetID,
		CreatedAt:     s.now(),
	}
	err = s.store.WithinTx(ctx, func(st repository.Store) error {
		_, err := s.post(ctx, st, tx)
		return err
	})
	if err != nil {
		return nil, storeErr("post transaction", err)
	}
	s.opts.Metrics.TransactionPosted("manual")
	s.changed()
	return tx, nil
}

// UpdateTransaction reverses the old effect before applying the new one,
// both inside one store transaction. A zero date or a nil daily budget link
// keeps the stored value.
func (s *Service) UpdateTransaction(ctx context.Context, transactionID string, in TransactionInput) (*models.Transaction, error) {
	in, err := s.validateTransaction(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated *models.Transaction
	err = s.store.WithinTx(ctx, func(st repository.Store) error {
		old, err := st.Transactions().GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := applyDelta(ctx, st, old.AccountID, old.SignedAmount().Neg()); err != nil {
			return err
		}

		next := *old
		next.Type = in.Type
		next.Amount = in.Amount
		if !in.Date.IsZero() {
			next.Date = in.Date
		}
		next.Category = in.Category
		next.Description = in.Description
		next.AccountID = in.AccountID
		if in.DailyBudgetID != nil {
			next.DailyBudgetID = in.DailyBudgetID
		}
		if err := st.Transactions().Update(ctx, &next); err != nil {
			return err
		}
		if err := applyDelta(ctx, st, next.AccountID, next.SignedAmount()); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, storeErr("update transaction", err)
	}
	s.changed()
	return updated, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, transactionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		old, err := st.Transactions().GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := applyDelta(ctx, st, old.AccountID, old.SignedAmount().Neg()); err != nil {
			return err
		}
		return st.Transactions().Delete(ctx, transactionID)
	})
	if err != nil {
		return storeErr("delete transaction", err)
	}
	s.changed()
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, storeErr("get transaction", err)
	}
	return tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*models.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	txs, err := s.store.Transactions().List(ctx, filter)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	return txs, nil
}
