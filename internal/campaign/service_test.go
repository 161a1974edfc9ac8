package campaign

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/cache"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	c.ID = 1
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// copy so the service can mutate freely
	c := *args.Get(0).(*domain.Campaign)
	return &c, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, f domain.CampaignFilter) ([]*domain.Campaign, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]*domain.Campaign), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, f domain.CampaignFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c *domain.Campaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.CampaignStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

type MockDonations struct {
	mock.Mock
}

func (m *MockDonations) FindCompletedByCampaign(ctx context.Context, campaignID int64, limit int) ([]*domain.Intent, error) {
	args := m.Called(ctx, campaignID, limit)
	return args.Get(0).([]*domain.Intent), args.Error(1)
}

func (m *MockDonations) CountCompletedByCampaign(ctx context.Context, campaignID int64) (int, error) {
	args := m.Called(ctx, campaignID)
	return args.Int(0), args.Error(1)
}

type MockFunds struct {
	mock.Mock
}

func (m *MockFunds) FindByID(ctx context.Context, id int64) (*domain.Fund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fund), args.Error(1)
}

// memCache is a JSON round-tripping map cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func newTestService(repo *MockRepository, c cache.Cache) (*Service, *MockDonations, *MockFunds) {
	log := logger.NewNop()
	donations := new(MockDonations)
	funds := new(MockFunds)
	reader := NewCachedReader(repo, c, time.Minute, log)
	return NewService(repo, reader, donations, funds, nil, log), donations, funds
}

func TestCachedReader_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("FindByID", ctx, int64(7)).Return(&domain.Campaign{
		ID: 7, Title: "School", GoalAmount: decimal.NewFromInt(100), CollectedAmount: decimal.NewFromInt(40),
	}, nil).Twice()

	reader := NewCachedReader(repo, newMemCache(), time.Minute, logger.NewNop())

	c, err := reader.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "School", c.Title)

	c, err = reader.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, c.CollectedAmount.Equal(decimal.NewFromInt(40)))
	repo.AssertNumberOfCalls(t, "FindByID", 1)

	require.NoError(t, reader.Invalidate(ctx, 7))
	_, err = reader.Get(ctx, 7)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "FindByID", 2)
}

func TestCreate_StatusByRole(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("Create", ctx, mock.Anything).Return(nil)
	svc, _, _ := newTestService(repo, nil)

	req := &CreateRequest{Title: "Clean water", GoalAmount: decimal.NewFromInt(5000)}

	c, err := svc.Create(ctx, uuid.New(), false, req)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignPending, c.Status)

	c, err = svc.Create(ctx, uuid.New(), true, req)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignActive, c.Status)

	_, err = svc.Create(ctx, uuid.New(), false, &CreateRequest{Title: "Zero", GoalAmount: decimal.Zero})
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestUpdate_Rules(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	active := &domain.Campaign{ID: 3, OwnerID: owner, GoalAmount: decimal.NewFromInt(100), Status: domain.CampaignActive}
	pending := &domain.Campaign{ID: 4, OwnerID: owner, GoalAmount: decimal.NewFromInt(100), Status: domain.CampaignPending}

	repo := new(MockRepository)
	repo.On("FindByID", ctx, int64(3)).Return(active, nil)
	repo.On("FindByID", ctx, int64(4)).Return(pending, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)
	svc, _, _ := newTestService(repo, nil)

	title := "Renamed"
	_, err := svc.Update(ctx, 3, uuid.New(), false, &UpdateRequest{Title: &title})
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	goal := decimal.NewFromInt(200)
	_, err = svc.Update(ctx, 3, owner, false, &UpdateRequest{GoalAmount: &goal})
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))

	c, err := svc.Update(ctx, 4, owner, false, &UpdateRequest{GoalAmount: &goal, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "200", c.GoalAmount.String())
	assert.Equal(t, "Renamed", c.Title)

	activate := domain.CampaignActive
	_, err = svc.Update(ctx, 4, owner, false, &UpdateRequest{Status: &activate})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := new(MockRepository)
	repo.On("FindByID", ctx, int64(3)).Return(&domain.Campaign{ID: 3, OwnerID: owner, Status: domain.CampaignActive}, nil)
	repo.On("FindByID", ctx, int64(5)).Return(&domain.Campaign{ID: 5, OwnerID: owner, Status: domain.CampaignCompleted}, nil)
	repo.On("FindByID", ctx, int64(6)).Return(&domain.Campaign{ID: 6, OwnerID: owner, Status: domain.CampaignCancelled}, nil)
	repo.On("UpdateStatus", ctx, int64(3), domain.CampaignActive, domain.CampaignCompleted).Return(true, nil)
	svc, _, _ := newTestService(repo, nil)

	c, err := svc.Complete(ctx, 3, owner, false)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, c.Status)
	assert.NotNil(t, c.CompletedAt)

	c, err = svc.Complete(ctx, 5, owner, false)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, c.Status)

	_, err = svc.Complete(ctx, 6, owner, false)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

	_, err = svc.Complete(ctx, 3, uuid.New(), false)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	repo.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	fundID := int64(2)
	repo := new(MockRepository)
	repo.On("FindByID", ctx, int64(3)).Return(&domain.Campaign{
		ID: 3, Title: "Well", FundID: &fundID,
		GoalAmount: decimal.NewFromInt(1000), CollectedAmount: decimal.NewFromInt(250),
		ParticipantsCount: 5, Status: domain.CampaignActive,
	}, nil)
	svc, donations, funds := newTestService(repo, nil)
	donations.On("CountCompletedByCampaign", ctx, int64(3)).Return(5, nil)
	donations.On("FindCompletedByCampaign", ctx, int64(3), reportRecentDonations).Return([]*domain.Intent{{ID: 9}}, nil)
	funds.On("FindByID", ctx, fundID).Return(&domain.Fund{ID: fundID, Name: "Aid"}, nil)

	r, err := svc.Report(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, r.TotalDonations)
	assert.Equal(t, "25", r.ProgressPercentage.String())
	require.NotNil(t, r.FundName)
	assert.Equal(t, "Aid", *r.FundName)
	assert.Len(t, r.RecentDonations, 1)
}
