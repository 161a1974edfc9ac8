package postgres

import (
	"context"
	"database/sql"
	"time"

	"sadaka/internal/domain"
	"sadaka/internal/ledger"
	"sadaka/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// LedgerStore runs intent transitions and aggregate updates in one
// read-committed transaction. Row-level conditions in each statement decide
// races, so no explicit locks are taken.
type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Persistence(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Persistence(err, "failed to commit transaction")
	}
	return nil
}

type ledgerTx struct {
	tx *sqlx.Tx
}

func (t *ledgerTx) TransitionIntent(ctx context.Context, id int64, from, to domain.IntentStatus, transactionID *string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE intents
		SET status = $1,
		    transaction_id = COALESCE(transaction_id, $2),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		to, transactionID, id, from,
	)
	if err != nil {
		return false, errors.Persistence(err, "failed to transition intent")
	}
	return affected(res, "failed to transition intent")
}

func (t *ledgerTx) AddToCampaign(ctx context.Context, campaignID int64, amount decimal.Decimal) (*ledger.CampaignTotals, error) {
	var totals ledger.CampaignTotals
	err := t.tx.GetContext(ctx, &totals, `
		UPDATE campaigns
		SET collected_amount = collected_amount + $1,
		    participants_count = participants_count + 1,
		    status = CASE
		        WHEN status = 'active' AND collected_amount + $1 >= goal_amount THEN 'completed'
		        ELSE status END,
		    completed_at = CASE
		        WHEN status = 'active' AND collected_amount + $1 >= goal_amount THEN NOW()
		        ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING id, collected_amount, goal_amount, participants_count, status`,
		amount, campaignID,
	)
	if err != nil {
		return nil, notFound(err, errors.ErrCampaignNotFound, "failed to update campaign totals")
	}
	return &totals, nil
}

func (t *ledgerTx) SubtractFromCampaign(ctx context.Context, campaignID int64, amount decimal.Decimal) (*ledger.CampaignTotals, error) {
	var totals ledger.CampaignTotals
	err := t.tx.GetContext(ctx, &totals, `
		UPDATE campaigns
		SET collected_amount = collected_amount - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, collected_amount, goal_amount, participants_count, status`,
		amount, campaignID,
	)
	if err != nil {
		return nil, notFound(err, errors.ErrCampaignNotFound, "failed to update campaign totals")
	}
	return &totals, nil
}

func (t *ledgerTx) SubscriptionFrequency(ctx context.Context, subscriptionID int64) (domain.Frequency, error) {
	var f domain.Frequency
	err := t.tx.GetContext(ctx, &f, `SELECT frequency FROM subscriptions WHERE id = $1`, subscriptionID)
	if err != nil {
		return "", notFound(err, errors.ErrSubscriptionMissing, "failed to read subscription")
	}
	return f, nil
}

func (t *ledgerTx) SetNextPaymentDate(ctx context.Context, subscriptionID int64, next time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE subscriptions SET next_payment_date = $1, updated_at = NOW() WHERE id = $2`,
		next, subscriptionID,
	)
	if err != nil {
		return errors.Persistence(err, "failed to set next payment date")
	}
	ok, err := affected(res, "failed to set next payment date")
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrSubscriptionMissing
	}
	return nil
}

func (t *ledgerTx) MarkZakatPaid(ctx context.Context, zakatID int64, paymentRef string) (bool, error) {
	return markZakatPaid(ctx, t.tx, zakatID, paymentRef)
}
