package postgres

import (
	"context"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const intentColumns = `
	id, user_id, fund_id, campaign_id, subscription_id, zakat_id,
	amount, currency, payment_method, purpose, external_payment_id,
	transaction_id, status, created_at, updated_at`

type IntentRepository struct {
	db *sqlx.DB
}

func NewIntentRepository(db *sqlx.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// Create inserts a pending intent and sets its id.
func (r *IntentRepository) Create(ctx context.Context, intent *domain.Intent) error {
	query := `
		INSERT INTO intents (
			user_id, fund_id, campaign_id, subscription_id, zakat_id,
			amount, currency, payment_method, purpose, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		intent.UserID, intent.FundID, intent.CampaignID, intent.SubscriptionID, intent.ZakatID,
		intent.Amount, intent.Currency, intent.PaymentMethod, intent.Purpose, intent.Status,
		intent.CreatedAt, intent.UpdatedAt,
	).Scan(&intent.ID)
	if err != nil {
		return errors.Persistence(err, "failed to create intent")
	}
	return nil
}

func (r *IntentRepository) FindByID(ctx context.Context, id int64) (*domain.Intent, error) {
	var intent domain.Intent
	query := `SELECT ` + intentColumns + ` FROM intents WHERE id = $1`
	if err := r.db.GetContext(ctx, &intent, query, id); err != nil {
		return nil, notFound(err, errors.ErrIntentNotFound, "failed to find intent")
	}
	return &intent, nil
}

func (r *IntentRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Intent, error) {
	intents := []*domain.Intent{}
	query := `SELECT ` + intentColumns + `
		FROM intents WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &intents, query, userID, limit, offset); err != nil {
		return nil, errors.Persistence(err, "failed to list intents")
	}
	return intents, nil
}

func (r *IntentRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM intents WHERE user_id = $1`, userID); err != nil {
		return 0, errors.Persistence(err, "failed to count intents")
	}
	return n, nil
}

// SetExternalPaymentID records the provider reference once. Later values are ignored.
func (r *IntentRepository) SetExternalPaymentID(ctx context.Context, id int64, ref string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE intents
		SET external_payment_id = COALESCE(external_payment_id, $1), updated_at = NOW()
		WHERE id = $2`, ref, id)
	return errors.Persistence(err, "failed to set external payment id")
}

// ListStalePending returns ids of intents pending since before cutoff, oldest first.
func (r *IntentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	ids := []int64{}
	query := `
		SELECT id FROM intents
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &ids, query, domain.IntentPending, cutoff, limit); err != nil {
		return nil, errors.Persistence(err, "failed to list stale intents")
	}
	return ids, nil
}

// FindCompletedByCampaign lists the most recent completed donations to a campaign.
func (r *IntentRepository) FindCompletedByCampaign(ctx context.Context, campaignID int64, limit int) ([]*domain.Intent, error) {
	intents := []*domain.Intent{}
	query := `SELECT ` + intentColumns + `
		FROM intents WHERE campaign_id = $1 AND status = $2
		ORDER BY updated_at DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &intents, query, campaignID, domain.IntentCompleted, limit); err != nil {
		return nil, errors.Persistence(err, "failed to list campaign donations")
	}
	return intents, nil
}

func (r *IntentRepository) CountCompletedByCampaign(ctx context.Context, campaignID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM intents WHERE campaign_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &n, query, campaignID, domain.IntentCompleted); err != nil {
		return 0, errors.Persistence(err, "failed to count campaign donations")
	}
	return n, nil
}
