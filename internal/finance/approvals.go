package finance

import (
	"context"
	"log"
	"strings"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

func (s *Service) ListPendingPayments(ctx context.Context, status models.PendingStatus) ([]*models.PendingPayment, error) {
	if status != "" && !status.IsValid() {
		return nil, invalidInput("unknown status %q", status)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payments, err := s.store.PendingPayments().List(ctx, status)
	if err != nil {
		return nil, storeErr("list pending payments", err)
	}
	return payments, nil
}

func (s *Service) GetPendingPayment(ctx context.Context, pendingID string) (*models.PendingPayment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.store.PendingPayments().GetByID(ctx, pendingID)
	if err != nil {
		return nil, storeErr("get pending payment", err)
	}
	return p, nil
}

func checkComplete(p *models.PendingPayment) error {
	if !p.Amount.IsPositive() {
		return ErrIncompleteData
	}
	if strings.TrimSpace(p.Category) == "" || strings.TrimSpace(p.Description) == "" {
		return ErrIncompleteData
	}
	return nil
}

// ApprovePendingPayment marks the payment approved and posts its expense in
// the same store transaction. If posting fails nothing is kept and the
// payment stays pending.
func (s *Service) ApprovePendingPayment(ctx context.Context, pendingID string) (*models.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var posted *models.Transaction
	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		p, err := st.PendingPayments().GetForUpdate(ctx, pendingID)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			return ErrAlreadyResolved
		}
		if err := checkComplete(p); err != nil {
			return err
		}

		ok, err := st.PendingPayments().Transition(ctx, pendingID, models.PendingStatusPending, models.PendingStatusApproved, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}

		key := models.PendingKey(p.PendingID)
		accountID := p.AccountID
		tx := &models.Transaction{
			TransactionID:  newID(),
			Type:           models.TransactionTypeExpense,
			Amount:         p.Amount,
			Date:           s.calendarDate(p.ScheduledDate),
			Category:       p.Category,
			Description:    p.Description,
			AccountID:      &accountID,
			IdempotencyKey: &key,
			CreatedAt:      s.now(),
		}
		if p.Kind == models.PendingKindDailyBudget {
			sourceID := p.SourceID
			tx.DailyBudgetID = &sourceID
		}

		created, err := s.post(ctx, st, tx)
		if err != nil {
			log.Printf("Failed to post approved payment %s, keeping it pending: %v", pendingID, err)
			return err
		}
		if !created {
			return ErrAlreadyResolved
		}
		posted = tx
		return nil
	})
	if err != nil {
		return nil, storeErr("approve pending payment", err)
	}

	s.opts.Metrics.PendingResolved(models.PendingStatusApproved)
	s.opts.Metrics.TransactionPosted("approval")
	s.changed()
	return posted, nil
}

func (s *Service) RejectPendingPayment(ctx context.Context, pendingID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		p, err := st.PendingPayments().GetForUpdate(ctx, pendingID)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			return ErrAlreadyResolved
		}
		ok, err := st.PendingPayments().Transition(ctx, pendingID, models.PendingStatusPending, models.PendingStatusRejected, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}
		return nil
	})
	if err != nil {
		return storeErr("reject pending payment", err)
	}

	s.opts.Metrics.PendingResolved(models.PendingStatusRejected)
	s.changed()
	return nil
}

// CleanupOldPendingPayments rejects pending payments older than the
// configured maximum age. Resolved payments are left alone.
func (s *Service) CleanupOldPendingPayments(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	n, err := s.store.PendingPayments().RejectStale(ctx, now.Add(-s.opts.PendingMaxAge), now)
	if err != nil {
		return 0, storeErr("cleanup pending payments", err)
	}
	if n > 0 {
		log.Printf("Rejected %d pending payments older than %s", n, s.opts.PendingMaxAge)
		s.opts.Metrics.PendingExpired(n)
		s.changed()
	}
	return n, nil
}
