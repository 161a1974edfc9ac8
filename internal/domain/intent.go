package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentStatus is the lifecycle state of a monetary intent.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
	IntentRefunded  IntentStatus = "refunded"
)

var intentTransitions = map[IntentStatus][]IntentStatus{
	IntentPending:   {IntentCompleted, IntentFailed},
	IntentCompleted: {IntentRefunded},
	IntentFailed:    nil,
	IntentRefunded:  nil,
}

func (s IntentStatus) Valid() bool {
	_, ok := intentTransitions[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s IntentStatus) Terminal() bool {
	return s.Valid() && len(intentTransitions[s]) == 0
}

func (s IntentStatus) CanTransitionTo(next IntentStatus) bool {
	for _, allowed := range intentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionSource returns the single status from which next is reachable.
// ok is false for pending and unknown statuses.
func TransitionSource(next IntentStatus) (from IntentStatus, ok bool) {
	for candidate, targets := range intentTransitions {
		for _, t := range targets {
			if t == next {
				return candidate, true
			}
		}
	}
	return "", false
}

// TargetKind names what a monetary intent pays for.
type TargetKind string

const (
	TargetFund         TargetKind = "fund"
	TargetCampaign     TargetKind = "campaign"
	TargetSubscription TargetKind = "subscription"
	TargetZakat        TargetKind = "zakat"
)

// Intent is a single attempted monetary movement: a donation to a fund or
// campaign, a subscription charge, or a zakat payment.
type Intent struct {
	ID                int64           `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	FundID            *int64          `json:"fund_id,omitempty" db:"fund_id"`
	CampaignID        *int64          `json:"campaign_id,omitempty" db:"campaign_id"`
	SubscriptionID    *int64          `json:"subscription_id,omitempty" db:"subscription_id"`
	ZakatID           *int64          `json:"zakat_id,omitempty" db:"zakat_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Currency          Currency        `json:"currency" db:"currency"`
	PaymentMethod     PaymentMethod   `json:"payment_method" db:"payment_method"`
	Purpose           *string         `json:"purpose,omitempty" db:"purpose"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty" db:"external_payment_id"`
	TransactionID     *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	Status            IntentStatus    `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Target returns the kind and id of the single referenced entity.
// ok is false unless exactly one reference is set.
func (i *Intent) Target() (kind TargetKind, id int64, ok bool) {
	refs := []struct {
		kind TargetKind
		id   *int64
	}{
		{TargetFund, i.FundID},
		{TargetCampaign, i.CampaignID},
		{TargetSubscription, i.SubscriptionID},
		{TargetZakat, i.ZakatID},
	}

	count := 0
	for _, r := range refs {
		if r.id != nil {
			kind, id = r.kind, *r.id
			count++
		}
	}
	if count != 1 {
		return "", 0, false
	}
	return kind, id, true
}

// SetTarget clears all references and sets the one for kind.
func (i *Intent) SetTarget(kind TargetKind, id int64) {
	i.FundID, i.CampaignID, i.SubscriptionID, i.ZakatID = nil, nil, nil, nil
	switch kind {
	case TargetFund:
		i.FundID = &id
	case TargetCampaign:
		i.CampaignID = &id
	case TargetSubscription:
		i.SubscriptionID = &id
	case TargetZakat:
		i.ZakatID = &id
	}
}

// CorrelationID is the reference handed to providers and echoed back in
// notifications.
func (i *Intent) CorrelationID() string {
	return strconv.FormatInt(i.ID, 10)
}
