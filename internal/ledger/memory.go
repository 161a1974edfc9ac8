package ledger

import (
	"context"
	"sync"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store. Transactions are serialized and work on
// a copy of the state that replaces the original only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	intents       map[int64]domain.Intent
	campaigns     map[int64]domain.Campaign
	subscriptions map[int64]domain.Subscription
	zakat         map[int64]domain.ZakatCalculation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		intents:       make(map[int64]domain.Intent),
		campaigns:     make(map[int64]domain.Campaign),
		subscriptions: make(map[int64]domain.Subscription),
		zakat:         make(map[int64]domain.ZakatCalculation),
	}}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		intents:       make(map[int64]domain.Intent, len(s.intents)),
		campaigns:     make(map[int64]domain.Campaign, len(s.campaigns)),
		subscriptions: make(map[int64]domain.Subscription, len(s.subscriptions)),
		zakat:         make(map[int64]domain.ZakatCalculation, len(s.zakat)),
	}
	for k, v := range s.intents {
		out.intents[k] = v
	}
	for k, v := range s.campaigns {
		out.campaigns[k] = v
	}
	for k, v := range s.subscriptions {
		out.subscriptions[k] = v
	}
	for k, v := range s.zakat {
		out.zakat[k] = v
	}
	return out
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memoryTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) PutIntent(i domain.Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.intents[i.ID] = i
}

func (m *MemoryStore) Intent(id int64) (domain.Intent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.state.intents[id]
	return i, ok
}

func (m *MemoryStore) PutCampaign(c domain.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.campaigns[c.ID] = c
}

func (m *MemoryStore) Campaign(id int64) (domain.Campaign, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.campaigns[id]
	return c, ok
}

func (m *MemoryStore) PutSubscription(s domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.subscriptions[s.ID] = s
}

func (m *MemoryStore) Subscription(id int64) (domain.Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.subscriptions[id]
	return s, ok
}

func (m *MemoryStore) PutZakat(z domain.ZakatCalculation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.zakat[z.ID] = z
}

func (m *MemoryStore) Zakat(id int64) (domain.ZakatCalculation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.state.zakat[id]
	return z, ok
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) TransitionIntent(ctx context.Context, id int64, from, to domain.IntentStatus, transactionID *string) (bool, error) {
	i, ok := t.state.intents[id]
	if !ok || i.Status != from {
		return false, nil
	}
	i.Status = to
	if i.TransactionID == nil && transactionID != nil {
		ref := *transactionID
		i.TransactionID = &ref
	}
	i.UpdatedAt = time.Now().UTC()
	t.state.intents[id] = i
	return true, nil
}

func (t *memoryTx) AddToCampaign(ctx context.Context, campaignID int64, amount decimal.Decimal) (*CampaignTotals, error) {
	c, ok := t.state.campaigns[campaignID]
	if !ok {
		return nil, errors.ErrCampaignNotFound
	}
	c.CollectedAmount = c.CollectedAmount.Add(amount)
	c.ParticipantsCount++
	if c.Status == domain.CampaignActive && c.GoalReached() {
		c.Status = domain.CampaignCompleted
		now := time.Now().UTC()
		c.CompletedAt = &now
	}
	t.state.campaigns[campaignID] = c
	return totalsOf(c), nil
}

func (t *memoryTx) SubtractFromCampaign(ctx context.Context, campaignID int64, amount decimal.Decimal) (*CampaignTotals, error) {
	c, ok := t.state.campaigns[campaignID]
	if !ok {
		return nil, errors.ErrCampaignNotFound
	}
	c.CollectedAmount = c.CollectedAmount.Sub(amount)
	t.state.campaigns[campaignID] = c
	return totalsOf(c), nil
}

func (t *memoryTx) SubscriptionFrequency(ctx context.Context, subscriptionID int64) (domain.Frequency, error) {
	s, ok := t.state.subscriptions[subscriptionID]
	if !ok {
		return "", errors.ErrSubscriptionMissing
	}
	return s.Frequency, nil
}

func (t *memoryTx) SetNextPaymentDate(ctx context.Context, subscriptionID int64, next time.Time) error {
	s, ok := t.state.subscriptions[subscriptionID]
	if !ok {
		return errors.ErrSubscriptionMissing
	}
	s.NextPaymentDate = &next
	t.state.subscriptions[subscriptionID] = s
	return nil
}

func (t *memoryTx) MarkZakatPaid(ctx context.Context, zakatID int64, paymentRef string) (bool, error) {
	z, ok := t.state.zakat[zakatID]
	if !ok || !z.Due() {
		return false, nil
	}
	z.IsPaid = true
	z.PaymentID = &paymentRef
	t.state.zakat[zakatID] = z
	return true, nil
}

func totalsOf(c domain.Campaign) *CampaignTotals {
	return &CampaignTotals{
		CampaignID:        c.ID,
		CollectedAmount:   c.CollectedAmount,
		GoalAmount:        c.GoalAmount,
		ParticipantsCount: c.ParticipantsCount,
		Status:            c.Status,
	}
}
