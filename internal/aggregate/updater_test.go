package aggregate

import (
	"context"
	"testing"
	"time"

	"sadaka/internal/domain"
	"sadaka/internal/ledger"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpdater(now time.Time) *Updater {
	u := NewUpdater(logger.NewNop())
	u.now = func() time.Time { return now }
	return u
}

func intentFor(kind domain.TargetKind, id int64, amount string) *domain.Intent {
	i := &domain.Intent{ID: 1, Amount: decimal.RequireFromString(amount), Status: domain.IntentCompleted}
	i.SetTarget(kind, id)
	return i
}

func apply(t *testing.T, store *ledger.MemoryStore, u *Updater, intent *domain.Intent) (*Effect, error) {
	t.Helper()
	var effect *Effect
	err := store.InTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		var err error
		effect, err = u.ApplyCompletion(ctx, tx, intent)
		return err
	})
	return effect, err
}

func TestApplyCompletion_Campaign(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutCampaign(domain.Campaign{
		ID:              3,
		GoalAmount:      decimal.NewFromInt(1000),
		CollectedAmount: decimal.NewFromInt(900),
		Status:          domain.CampaignActive,
	})
	u := newUpdater(time.Now())

	effect, err := apply(t, store, u, intentFor(domain.TargetCampaign, 3, "50"))
	require.NoError(t, err)
	assert.False(t, effect.GoalReached)

	c, _ := store.Campaign(3)
	assert.Equal(t, "950", c.CollectedAmount.String())
	assert.Equal(t, 1, c.ParticipantsCount)
	assert.Equal(t, domain.CampaignActive, c.Status)

	effect, err = apply(t, store, u, intentFor(domain.TargetCampaign, 3, "100"))
	require.NoError(t, err)
	assert.True(t, effect.GoalReached)

	c, _ = store.Campaign(3)
	assert.Equal(t, "1050", c.CollectedAmount.String())
	assert.Equal(t, 2, c.ParticipantsCount)
	assert.Equal(t, domain.CampaignCompleted, c.Status)
	assert.NotNil(t, c.CompletedAt)

	// further donations still count but the goal is not reached twice
	effect, err = apply(t, store, u, intentFor(domain.TargetCampaign, 3, "10"))
	require.NoError(t, err)
	assert.False(t, effect.GoalReached)
	c, _ = store.Campaign(3)
	assert.Equal(t, domain.CampaignCompleted, c.Status)
	assert.Equal(t, "1060", c.CollectedAmount.String())
}

func TestApplyCompletion_ExactGoal(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutCampaign(domain.Campaign{ID: 1, GoalAmount: decimal.NewFromInt(100), Status: domain.CampaignActive})

	effect, err := apply(t, store, newUpdater(time.Now()), intentFor(domain.TargetCampaign, 1, "100"))
	require.NoError(t, err)
	assert.True(t, effect.GoalReached)
}

func TestApplyCompletion_MissingCampaignRollsBack(t *testing.T) {
	store := ledger.NewMemoryStore()
	_, err := apply(t, store, newUpdater(time.Now()), intentFor(domain.TargetCampaign, 99, "10"))
	assert.True(t, errors.Is(err, errors.ErrCampaignNotFound))
}

func TestApplyCompletion_Subscription(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		frequency domain.Frequency
		want      time.Time
	}{
		{domain.FrequencyDaily, now.Add(24 * time.Hour)},
		{domain.FrequencyWeekly, now.Add(7 * 24 * time.Hour)},
		{domain.FrequencyMonthly, now.Add(30 * 24 * time.Hour)},
		{domain.Frequency("quarterly"), now.Add(30 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			store := ledger.NewMemoryStore()
			store.PutSubscription(domain.Subscription{ID: 4, Frequency: tt.frequency, Status: domain.SubscriptionActive})

			effect, err := apply(t, store, newUpdater(now), intentFor(domain.TargetSubscription, 4, "300"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *effect.NextPaymentDate)

			s, _ := store.Subscription(4)
			assert.Equal(t, tt.want, *s.NextPaymentDate)
		})
	}
}

func TestApplyCompletion_Zakat(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutZakat(domain.ZakatCalculation{ID: 8, ZakatAmount: decimal.NewFromInt(25000)})
	u := newUpdater(time.Now())

	intent := intentFor(domain.TargetZakat, 8, "25000")
	txID := "cp-777"
	intent.TransactionID = &txID

	effect, err := apply(t, store, u, intent)
	require.NoError(t, err)
	assert.True(t, effect.ZakatPaid)

	z, _ := store.Zakat(8)
	assert.True(t, z.IsPaid)
	assert.Equal(t, "cp-777", *z.PaymentID)

	_, err = apply(t, store, u, intent)
	assert.True(t, errors.Is(err, errors.ErrZakatAlreadyPaid))
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
}

func TestApplyCompletion_FundHasNoAggregate(t *testing.T) {
	store := ledger.NewMemoryStore()
	effect, err := apply(t, store, newUpdater(time.Now()), intentFor(domain.TargetFund, 2, "10"))
	require.NoError(t, err)
	assert.Equal(t, domain.TargetFund, effect.Kind)
	assert.Nil(t, effect.Campaign)
}

func TestApplyCompletion_InvalidTarget(t *testing.T) {
	store := ledger.NewMemoryStore()
	_, err := apply(t, store, newUpdater(time.Now()), &domain.Intent{ID: 1, Amount: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, errors.ErrInvalidTarget))
}

func TestApplyRefund_Campaign(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutCampaign(domain.Campaign{
		ID:                3,
		GoalAmount:        decimal.NewFromInt(100),
		CollectedAmount:   decimal.NewFromInt(120),
		ParticipantsCount: 2,
		Status:            domain.CampaignCompleted,
	})
	u := newUpdater(time.Now())

	err := store.InTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		_, err := u.ApplyRefund(ctx, tx, intentFor(domain.TargetCampaign, 3, "70"))
		return err
	})
	require.NoError(t, err)

	c, _ := store.Campaign(3)
	assert.Equal(t, "50", c.CollectedAmount.String())
	assert.Equal(t, 2, c.ParticipantsCount)
	assert.Equal(t, domain.CampaignCompleted, c.Status)
}
