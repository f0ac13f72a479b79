package finance

import (
	"context"
	"log"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
	"github.com/hray3182/ledgerline/internal/rrule"
)

const (
	dateLayout = models.DateLayout

	autoPaymentPrefix = "Pago automático: "
)

type RecurringResult struct {
	Pending  int `json:"pending_payments"`
	Executed int `json:"executed_payments"`
}

type DailyBudgetResult struct {
	Pending int `json:"pending_budgets"`
}

// DetectionReport summarises one full obligation pass.
type DetectionReport struct {
	Date         string            `json:"date"`
	Migrated     int               `json:"migrated"`
	Expired      int               `json:"expired"`
	Recurring    RecurringResult   `json:"recurring"`
	DailyBudgets DailyBudgetResult `json:"daily_budgets"`
}

// Total reports how many new records the pass produced.
func (r DetectionReport) Total() int {
	return r.Recurring.Pending + r.Recurring.Executed + r.DailyBudgets.Pending
}

// keyUsed reports whether a transaction or a pending payment already carries
// a key starting with prefix.
func keyUsed(ctx context.Context, st repository.Store, prefix string) (bool, error) {
	used, err := st.Transactions().ExistsByKeyPrefix(ctx, prefix)
	if err != nil || used {
		return used, err
	}
	return st.PendingPayments().ExistsByKeyPrefix(ctx, prefix)
}

// DetectRecurringPayments evaluates every recurring payment against today.
// Payments that need no approval are posted to the default account, the
// rest are queued. Each payment produces at most one record per day.
func (s *Service) DetectRecurringPayments(ctx context.Context) (RecurringResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result RecurringResult
	today := s.today()

	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		result = RecurringResult{}
		if err := st.LockScheduler(ctx); err != nil {
			return err
		}
		account, err := s.defaultAccount(ctx, st)
		if err != nil {
			return err
		}

		payments, err := st.RecurringPayments().List(ctx)
		if err != nil {
			return err
		}

		for _, p := range payments {
			due, err := rrule.OccursOn(rrule.ForRecurringPayment(p), today, s.opts.Location)
			if err != nil {
				log.Printf("Failed to evaluate recurring payment %s: %v", p.PaymentID, err)
				continue
			}
			if !due {
				continue
			}

			key := models.RecurringKey(p.PaymentID, today)
			used, err := keyUsed(ctx, st, key)
			if err != nil {
				return err
			}
			if used {
				continue
			}

			description := autoPaymentPrefix + p.Name
			if !p.NeedsApproval() {
				tx := &models.Transaction{
					TransactionID:  newID(),
					Type:           models.TransactionTypeExpense,
					Amount:         p.Amount,
					Date:           today,
					Category:       p.Category,
					Description:    description,
					AccountID:      &account.AccountID,
					IdempotencyKey: &key,
					CreatedAt:      s.now(),
				}
				created, err := s.post(ctx, st, tx)
				if err != nil {
					return err
				}
				if created {
					result.Executed++
					log.Printf("Posted recurring payment %s (%s) to account %s", p.Name, p.Amount, account.Name)
				}
				continue
			}

			if p.Description != "" {
				description = p.Description
			}
			created, err := st.PendingPayments().Create(ctx, &models.PendingPayment{
				PendingID:      newID(),
				Kind:           models.PendingKindRecurring,
				Name:           p.Name,
				Amount:         p.Amount,
				Category:       p.Category,
				Description:    description,
				ScheduledDate:  today,
				AccountID:      account.AccountID,
				SourceID:       p.PaymentID,
				IdempotencyKey: key,
				Status:         models.PendingStatusPending,
				CreatedAt:      s.now(),
			})
			if err != nil {
				return err
			}
			if created {
				result.Pending++
			}
		}
		return nil
	})
	if err != nil {
		return RecurringResult{}, storeErr("detect recurring payments", err)
	}

	s.opts.Metrics.ObligationsDetected(models.PendingKindRecurring, result.Pending, result.Executed)
	if result.Executed > 0 {
		s.opts.Metrics.TransactionPosted("recurring")
	}
	if result.Pending+result.Executed > 0 {
		s.changed()
	}
	return result, nil
}

// DetectDailyBudgets queues one pending payment per line item for every
// auto-create budget scheduled today. A budget is skipped entirely when any
// record for it already exists today.
func (s *Service) DetectDailyBudgets(ctx context.Context) (DailyBudgetResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result DailyBudgetResult
	today := s.today()

	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		result = DailyBudgetResult{}
		if err := st.LockScheduler(ctx); err != nil {
			return err
		}
		account, err := s.defaultAccount(ctx, st)
		if err != nil {
			return err
		}

		budgets, err := st.DailyBudgets().List(ctx)
		if err != nil {
			return err
		}

		for _, b := range budgets {
			if !b.AutoCreate || len(b.Items) == 0 {
				continue
			}
			due, err := rrule.OccursOn(rrule.ForDailyBudget(b), today, s.opts.Location)
			if err != nil {
				log.Printf("Failed to evaluate daily budget %s: %v", b.BudgetID, err)
				continue
			}
			if !due {
				continue
			}

			used, err := keyUsed(ctx, st, models.DailyBudgetPrefix(b.BudgetID, today))
			if err != nil {
				return err
			}
			if used {
				continue
			}

			accountID := account.AccountID
			if b.AccountID != nil {
				accountID = *b.AccountID
			}

			for _, item := range b.Items {
				itemID := item.ItemID
				description := item.Description
				if description == "" {
					description = b.Name + ": " + item.Name
				}
				category := item.Category
				if category == "" {
					category = b.Category
				}
				created, err := st.PendingPayments().Create(ctx, &models.PendingPayment{
					PendingID:      newID(),
					Kind:           models.PendingKindDailyBudget,
					Name:           item.Name,
					Amount:         item.Amount,
					Category:       category,
					Description:    description,
					ScheduledDate:  today,
					AccountID:      accountID,
					SourceID:       b.BudgetID,
					SourceItemID:   &itemID,
					IdempotencyKey: models.DailyBudgetKey(b.BudgetID, item.ItemID, today),
					Status:         models.PendingStatusPending,
					CreatedAt:      s.now(),
				})
				if err != nil {
					return err
				}
				if created {
					result.Pending++
				}
			}
		}
		return nil
	})
	if err != nil {
		return DailyBudgetResult{}, storeErr("detect daily budgets", err)
	}

	s.opts.Metrics.ObligationsDetected(models.PendingKindDailyBudget, result.Pending, 0)
	if result.Pending > 0 {
		s.changed()
	}
	return result, nil
}

// RunDetection performs the full daily pass: legacy migration, expiry of
// stale approvals, recurring payments, then daily budgets. Migration and
// expiry errors are logged and the pass continues. Concurrent callers in this
// process share one run.
func (s *Service) RunDetection(ctx context.Context) (DetectionReport, error) {
	v, err, _ := s.detection.Do("detection", func() (any, error) {
		return s.runDetection(ctx)
	})
	if err != nil {
		s.opts.Metrics.DetectionFailed()
		return DetectionReport{}, err
	}
	return v.(DetectionReport), nil
}

func (s *Service) runDetection(ctx context.Context) (DetectionReport, error) {
	report := DetectionReport{Date: s.today().Format(dateLayout)}

	// housekeeping failures do not block detection
	migrated, err := s.MigrateRecurringPayments(ctx)
	if err != nil {
		log.Printf("Failed to migrate recurring payments: %v", err)
	}
	report.Migrated = migrated

	expired, err := s.CleanupOldPendingPayments(ctx)
	if err != nil {
		log.Printf("Failed to clean up pending payments: %v", err)
	}
	report.Expired = expired

	recurring, err := s.DetectRecurringPayments(ctx)
	if err != nil {
		return report, err
	}
	report.Recurring = recurring

	budgets, err := s.DetectDailyBudgets(ctx)
	if err != nil {
		return report, err
	}
	report.DailyBudgets = budgets

	log.Printf("Obligation pass for %s: %d executed, %d recurring pending, %d budget items pending, %d expired",
		report.Date, recurring.Executed, recurring.Pending, budgets.Pending, expired)
	return report, nil
}
