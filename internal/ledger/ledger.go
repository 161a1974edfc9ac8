// ==============================================================================
// LEDGER - internal/ledger/ledger.go
// ==============================================================================
// Unit of work for monetary state. Every intent transition and the aggregate
// change it causes run inside one Store.InTx call and commit together.
// ==============================================================================
package ledger

import (
	"context"
	"time"

	"sadaka/internal/domain"

	"github.com/shopspring/decimal"
)

// CampaignTotals is a campaign's aggregate state after an update.
type CampaignTotals struct {
	CampaignID        int64                 `json:"campaign_id" db:"id"`
	CollectedAmount   decimal.Decimal       `json:"collected_amount" db:"collected_amount"`
	GoalAmount        decimal.Decimal       `json:"goal_amount" db:"goal_amount"`
	ParticipantsCount int                   `json:"participants_count" db:"participants_count"`
	Status            domain.CampaignStatus `json:"status" db:"status"`
}

// Tx is the set of statements available inside a transaction. Status and
// aggregate changes are conditional or relative so that concurrent
// transactions never overwrite each other.
type Tx interface {
	// TransitionIntent moves the intent from -> to. It reports false when the
	// intent is not currently in from, which means another writer got there first.
	// transactionID is stored only if none is set yet.
	TransitionIntent(ctx context.Context, id int64, from, to domain.IntentStatus, transactionID *string) (bool, error)

	// AddToCampaign adds amount and one participant, completing an active
	// campaign whose collected amount reaches the goal.
	AddToCampaign(ctx context.Context, campaignID int64, amount decimal.Decimal) (*CampaignTotals, error)

	// SubtractFromCampaign removes a refunded amount. Status and participants are kept.
	SubtractFromCampaign(ctx context.Context, campaignID int64, amount decimal.Decimal) (*CampaignTotals, error)

	SubscriptionFrequency(ctx context.Context, subscriptionID int64) (domain.Frequency, error)
	SetNextPaymentDate(ctx context.Context, subscriptionID int64, next time.Time) error

	// MarkZakatPaid sets is_paid on an unpaid calculation with a positive amount.
	// It reports false when the calculation was already paid or nothing is due.
	MarkZakatPaid(ctx context.Context, zakatID int64, paymentRef string) (bool, error)
}

// Store runs fn inside a transaction. fn's error rolls everything back.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
