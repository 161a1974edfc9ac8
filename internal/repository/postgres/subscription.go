package postgres

import (
	"context"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const subscriptionColumns = `
	id, user_id, fund_id, plan, amount, currency, frequency, payment_method,
	purpose, status, next_payment_date, created_at, updated_at`

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			user_id, fund_id, plan, amount, currency, frequency, payment_method,
			purpose, status, next_payment_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		s.UserID, s.FundID, s.Plan, s.Amount, s.Currency, s.Frequency, s.PaymentMethod,
		s.Purpose, s.Status, s.NextPaymentDate, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return errors.Persistence(err, "failed to create subscription")
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*domain.Subscription, error) {
	var s domain.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, notFound(err, errors.ErrSubscriptionMissing, "failed to find subscription")
	}
	return &s, nil
}

func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error) {
	subs := []*domain.Subscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, errors.Persistence(err, "failed to list subscriptions")
	}
	return subs, nil
}

// UpdateStatus moves the subscription from -> to and reports whether it did.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.SubscriptionStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return false, errors.Persistence(err, "failed to update subscription status")
	}
	return affected(res, "failed to update subscription status")
}

// Resume reactivates a paused subscription and reschedules its next charge.
func (r *SubscriptionRepository) Resume(ctx context.Context, id int64, next time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1, next_payment_date = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		domain.SubscriptionActive, next, id, domain.SubscriptionPaused,
	)
	if err != nil {
		return false, errors.Persistence(err, "failed to resume subscription")
	}
	return affected(res, "failed to resume subscription")
}
