package postgres

import (
	"context"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

const recurringPaymentColumns = `payment_id, name, amount, category, day_of_month, days_of_week,
	description, requires_approval, created_at`

type RecurringPaymentRepository struct {
	q database.Querier
}

func (r *RecurringPaymentRepository) Create(ctx context.Context, p *models.RecurringPayment) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO recurring_payments (payment_id, name, amount, category, day_of_month, days_of_week,
		 description, requires_approval, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.PaymentID, p.Name, p.Amount, p.Category, p.DayOfMonth, p.DaysOfWeek,
		p.Description, p.RequiresApproval, p.CreatedAt,
	)
	return err
}

func (r *RecurringPaymentRepository) GetByID(ctx context.Context, paymentID string) (*models.RecurringPayment, error) {
	p, err := scanRecurringPayment(r.q.QueryRow(ctx,
		`SELECT `+recurringPaymentColumns+` FROM recurring_payments WHERE payment_id = $1`,
		paymentID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *RecurringPaymentRepository) List(ctx context.Context) ([]*models.RecurringPayment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+recurringPaymentColumns+` FROM recurring_payments ORDER BY created_at, payment_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.RecurringPayment
	for rows.Next() {
		p, err := scanRecurringPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *RecurringPaymentRepository) Update(ctx context.Context, p *models.RecurringPayment) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE recurring_payments SET name = $1, amount = $2, category = $3, day_of_month = $4,
		 days_of_week = $5, description = $6, requires_approval = $7
		 WHERE payment_id = $8`,
		p.Name, p.Amount, p.Category, p.DayOfMonth, p.DaysOfWeek, p.Description, p.RequiresApproval,
		p.PaymentID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RecurringPaymentRepository) Delete(ctx context.Context, paymentID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM recurring_payments WHERE payment_id = $1`, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RecurringPaymentRepository) MigrateLegacy(ctx context.Context) (int, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE recurring_payments SET requires_approval = TRUE WHERE requires_approval IS NULL`,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanRecurringPayment(row scanner) (*models.RecurringPayment, error) {
	p := &models.RecurringPayment{}
	if err := row.Scan(&p.PaymentID, &p.Name, &p.Amount, &p.Category, &p.DayOfMonth, &p.DaysOfWeek,
		&p.Description, &p.RequiresApproval, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}
