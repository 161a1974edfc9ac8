package payment

import (
	"context"
	"time"

	"sadaka/internal/aggregate"
	"sadaka/internal/domain"
	"sadaka/internal/events"
	"sadaka/internal/ledger"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"
)

// Outcome describes what a reconciliation did.
type Outcome string

const (
	// OutcomeApplied: the intent changed status and aggregates were updated.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the intent already had the notified status.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomePending: the provider reported a non-final status.
	OutcomePending Outcome = "pending"
	// OutcomeIgnored: the notified status is not reachable from the current one.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeConflict: the intent completed but its target had already been
	// settled by another payment, so no aggregate changed.
	OutcomeConflict Outcome = "conflict"
)

// SettleResult is the state after a transition attempt.
type SettleResult struct {
	Intent  *domain.Intent    `json:"intent"`
	Applied bool              `json:"applied"`
	Effect  *aggregate.Effect `json:"effect,omitempty"`

	// Conflict is set when the transition committed without its target
	// side effect.
	Conflict bool `json:"conflict,omitempty"`
}

type ReconcileResult struct {
	IntentID       int64               `json:"intent_id"`
	ProviderStatus string              `json:"provider_status"`
	Status         domain.IntentStatus `json:"status"`
	Outcome        Outcome             `json:"outcome"`
}

// Reconcile authenticates a provider notification and applies the status it
// reports. Replays and concurrent duplicates resolve to a single transition.
func (s *Service) Reconcile(ctx context.Context, providerName string, body []byte, signature string) (*ReconcileResult, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	n, err := provider.ParseNotification(body, signature)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidSignature) {
			logger.Security(s.logger, "Webhook signature rejected", map[string]interface{}{
				"provider": providerName,
			})
		} else {
			s.logger.Warn("Malformed webhook payload", map[string]interface{}{
				"provider": providerName,
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	fields := map[string]interface{}{
		"provider":        providerName,
		"intent_id":       n.IntentID,
		"transaction_id":  n.TransactionID,
		"provider_status": n.ProviderStatus,
	}

	intent, err := s.intents.FindByID(ctx, n.IntentID)
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Webhook for unknown intent", fields)
		return nil, err
	}

	if intent.PaymentMethod != provider.Method() {
		s.logger.Warn("Webhook provider does not match intent", fields)
		return nil, errors.ErrIntentNotFound
	}
	if !n.Amount.Equal(intent.Amount) || n.Currency != intent.Currency {
		fields["amount"] = n.Amount.String()
		fields["expected_amount"] = intent.Amount.String()
		logger.Security(s.logger, "Webhook amount mismatch", fields)
		return nil, errors.ErrAmountMismatch
	}

	result := &ReconcileResult{
		IntentID:       intent.ID,
		ProviderStatus: n.ProviderStatus,
		Status:         intent.Status,
	}

	switch {
	case n.Status == domain.IntentPending:
		result.Outcome = OutcomePending
		s.logger.Info("Webhook reported pending status", fields)
		return result, nil
	case intent.Status == n.Status:
		result.Outcome = OutcomeDuplicate
		s.logger.Info("Duplicate webhook ignored", fields)
		return result, nil
	case !intent.Status.CanTransitionTo(n.Status):
		result.Outcome = OutcomeIgnored
		fields["current_status"] = intent.Status
		s.logger.Warn("Webhook status transition not allowed", fields)
		return result, nil
	}

	txID := n.TransactionID
	settled, err := s.settle(ctx, intent, n.Status, &txID)
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Error("Webhook reconciliation failed", fields)
		return nil, err
	}

	result.Status = settled.Intent.Status
	switch {
	case !settled.Applied:
		result.Outcome = OutcomeDuplicate
	case settled.Conflict:
		result.Outcome = OutcomeConflict
	default:
		result.Outcome = OutcomeApplied
	}

	fields["outcome"] = result.Outcome
	s.logger.Info("Webhook reconciled", fields)
	return result, nil
}

// Acknowledge renders the provider-specific response body for err.
func (s *Service) Acknowledge(providerName string, err error) interface{} {
	provider, lookupErr := s.providers.Get(providerName)
	if lookupErr != nil {
		return map[string]string{"error": errors.MessageOf(lookupErr)}
	}
	return provider.Ack(err)
}

// settle runs the conditional transition and the aggregate update in one
// transaction. Losing the race to another writer is not an error. A completion
// whose target refuses it (a zakat already paid by another intent) still
// commits the transition, because the provider has taken the money, and is
// reported through SettleResult.Conflict.
func (s *Service) settle(ctx context.Context, intent *domain.Intent, to domain.IntentStatus, transactionID *string) (*SettleResult, error) {
	from, ok := domain.TransitionSource(to)
	if !ok {
		return nil, errors.ErrInvalidTransition
	}

	settled := *intent
	settled.Status = to
	settled.UpdatedAt = time.Now().UTC()
	if settled.TransactionID == nil && transactionID != nil {
		settled.TransactionID = transactionID
	}

	var (
		applied  bool
		conflict bool
		effect   *aggregate.Effect
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		won, err := tx.TransitionIntent(ctx, intent.ID, from, to, transactionID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		applied = true

		switch to {
		case domain.IntentCompleted:
			effect, err = s.updater.ApplyCompletion(ctx, tx, &settled)
			if errors.KindOf(err) == errors.KindConflict {
				conflict = true
				s.logger.Warn("Completed intent target already settled", map[string]interface{}{
					"intent_id": intent.ID,
					"error":     err.Error(),
				})
				return nil
			}
		case domain.IntentRefunded:
			effect, err = s.updater.ApplyRefund(ctx, tx, &settled)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		current, err := s.intents.FindByID(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		return &SettleResult{Intent: current, Applied: false}, nil
	}

	s.afterCommit(ctx, &settled, effect)
	return &SettleResult{Intent: &settled, Applied: true, Effect: effect, Conflict: conflict}, nil
}

// afterCommit fans out side effects of a committed transition. Failures are
// logged and never undo the transition.
func (s *Service) afterCommit(ctx context.Context, intent *domain.Intent, effect *aggregate.Effect) {
	kind, targetID, _ := intent.Target()
	event := events.IntentEvent{
		IntentID:   intent.ID,
		UserID:     intent.UserID.String(),
		Status:     intent.Status,
		Amount:     intent.Amount.StringFixed(2),
		Currency:   intent.Currency,
		TargetKind: kind,
		TargetID:   targetID,
		OccurredAt: intent.UpdatedAt,
	}
	if intent.TransactionID != nil {
		event.TransactionID = *intent.TransactionID
	}
	if effect != nil {
		event.GoalReached = effect.GoalReached
	}

	if err := s.publisher.PublishIntentEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish intent event", map[string]interface{}{
			"intent_id": intent.ID,
			"error":     err.Error(),
		})
	}

	if effect == nil || effect.Campaign == nil {
		return
	}
	if s.campaignCache != nil {
		if err := s.campaignCache.Invalidate(ctx, effect.TargetID); err != nil {
			s.logger.Warn("Failed to invalidate campaign cache", map[string]interface{}{
				"campaign_id": effect.TargetID,
				"error":       err.Error(),
			})
		}
	}
	if s.indexer != nil {
		if err := s.indexer.UpdateCampaignTotals(ctx, effect.Campaign); err != nil {
			s.logger.Warn("Failed to update campaign search document", map[string]interface{}{
				"campaign_id": effect.TargetID,
				"error":       err.Error(),
			})
		}
	}
}
