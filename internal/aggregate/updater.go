// Package aggregate reflects settled intents in the totals of their targets.
package aggregate

import (
	"context"
	"time"

	"sadaka/internal/domain"
	"sadaka/internal/ledger"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"
)

// Effect describes what an update changed, for cache and index refresh.
type Effect struct {
	Kind            domain.TargetKind      `json:"kind"`
	TargetID        int64                  `json:"target_id"`
	Campaign        *ledger.CampaignTotals `json:"campaign,omitempty"`
	GoalReached     bool                   `json:"goal_reached,omitempty"`
	NextPaymentDate *time.Time             `json:"next_payment_date,omitempty"`
	ZakatPaid       bool                   `json:"zakat_paid,omitempty"`
}

type Updater struct {
	logger logger.Logger
	now    func() time.Time
}

func NewUpdater(log logger.Logger) *Updater {
	return &Updater{logger: log, now: func() time.Time { return time.Now().UTC() }}
}

// ApplyCompletion applies a pending -> completed intent to its target. It
// must run in the same transaction as the transition.
func (u *Updater) ApplyCompletion(ctx context.Context, tx ledger.Tx, intent *domain.Intent) (*Effect, error) {
	kind, id, ok := intent.Target()
	if !ok {
		return nil, errors.ErrInvalidTarget
	}
	effect := &Effect{Kind: kind, TargetID: id}

	switch kind {
	case domain.TargetCampaign:
		totals, err := tx.AddToCampaign(ctx, id, intent.Amount)
		if err != nil {
			return nil, err
		}
		effect.Campaign = totals
		effect.GoalReached = totals.Status == domain.CampaignCompleted &&
			totals.CollectedAmount.Sub(intent.Amount).LessThan(totals.GoalAmount)
		if effect.GoalReached {
			u.logger.Info("Campaign goal reached", map[string]interface{}{
				"campaign_id": id,
				"collected":   totals.CollectedAmount.String(),
				"goal":        totals.GoalAmount.String(),
			})
		}

	case domain.TargetSubscription:
		freq, err := tx.SubscriptionFrequency(ctx, id)
		if err != nil {
			return nil, err
		}
		next := freq.NextPaymentDate(u.now())
		if err := tx.SetNextPaymentDate(ctx, id, next); err != nil {
			return nil, err
		}
		effect.NextPaymentDate = &next

	case domain.TargetZakat:
		ref := intent.CorrelationID()
		if intent.TransactionID != nil {
			ref = *intent.TransactionID
		}
		paid, err := tx.MarkZakatPaid(ctx, id, ref)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, errors.ErrZakatAlreadyPaid
		}
		effect.ZakatPaid = true

	case domain.TargetFund:
		// funds keep no running totals
	}

	return effect, nil
}

// ApplyRefund reverses the monetary part of a completed -> refunded intent.
// Campaign status and participant counts are not reverted.
func (u *Updater) ApplyRefund(ctx context.Context, tx ledger.Tx, intent *domain.Intent) (*Effect, error) {
	kind, id, ok := intent.Target()
	if !ok {
		return nil, errors.ErrInvalidTarget
	}
	effect := &Effect{Kind: kind, TargetID: id}

	if kind == domain.TargetCampaign {
		totals, err := tx.SubtractFromCampaign(ctx, id, intent.Amount)
		if err != nil {
			return nil, err
		}
		effect.Campaign = totals
	}
	return effect, nil
}
