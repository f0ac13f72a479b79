package postgres

import (
	"context"
	"time"

	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

const pendingPaymentColumns = `pending_id, kind, name, amount, category, description, scheduled_date,
	account_id, source_id, source_item_id, idempotency_key, status, created_at, resolved_at`

type PendingPaymentRepository struct {
	q database.Querier
}

func (r *PendingPaymentRepository) Create(ctx context.Context, p *models.PendingPayment) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO pending_payments (pending_id, kind, name, amount, category, description,
		 scheduled_date, account_id, source_id, source_item_id, idempotency_key, status, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		p.PendingID, p.Kind, p.Name, p.Amount, p.Category, p.Description,
		p.ScheduledDate, p.AccountID, p.SourceID, p.SourceItemID, p.IdempotencyKey, p.Status,
		p.CreatedAt, p.ResolvedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PendingPaymentRepository) GetByID(ctx context.Context, pendingID string) (*models.PendingPayment, error) {
	return r.get(ctx, `SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE pending_id = $1`, pendingID)
}

func (r *PendingPaymentRepository) GetForUpdate(ctx context.Context, pendingID string) (*models.PendingPayment, error) {
	return r.get(ctx, `SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE pending_id = $1 FOR UPDATE`, pendingID)
}

func (r *PendingPaymentRepository) get(ctx context.Context, query, pendingID string) (*models.PendingPayment, error) {
	p, err := scanPendingPayment(r.q.QueryRow(ctx, query, pendingID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PendingPaymentRepository) List(ctx context.Context, status models.PendingStatus) ([]*models.PendingPayment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at, pending_id`,
		string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.PendingPayment
	for rows.Next() {
		p, err := scanPendingPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PendingPaymentRepository) Transition(ctx context.Context, pendingID string, from, to models.PendingStatus, at time.Time) (bool, error) {
	var resolvedAt *time.Time
	if to.IsTerminal() {
		resolvedAt = &at
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE pending_payments SET status = $1, resolved_at = $2
		 WHERE pending_id = $3 AND status = $4`,
		to, resolvedAt, pendingID, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PendingPaymentRepository) RejectStale(ctx context.Context, cutoff time.Time, at time.Time) (int, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE pending_payments SET status = $1, resolved_at = $2
		 WHERE status = $3 AND created_at < $4`,
		models.PendingStatusRejected, at, models.PendingStatusPending, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PendingPaymentRepository) ExistsByKeyPrefix(ctx context.Context, prefix string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pending_payments WHERE starts_with(idempotency_key, $1))`,
		prefix,
	).Scan(&exists)
	return exists, err
}

func scanPendingPayment(row scanner) (*models.PendingPayment, error) {
	p := &models.PendingPayment{}
	if err := row.Scan(&p.PendingID, &p.Kind, &p.Name, &p.Amount, &p.Category, &p.Description,
		&p.ScheduledDate, &p.AccountID, &p.SourceID, &p.SourceItemID, &p.IdempotencyKey, &p.Status,
		&p.CreatedAt, &p.ResolvedAt); err != nil {
		return nil, err
	}
	return p, nil
}
