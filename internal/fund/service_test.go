package fund

import (
	"context"
	"errors"
	"testing"

	"sadaka/internal/domain"
	"sadaka/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, f *domain.Fund) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id int64) (*domain.Fund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fund), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, f domain.FundFilter) ([]*domain.Fund, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]*domain.Fund), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, f domain.FundFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, f *domain.Fund) error {
	return m.Called(ctx, f).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexFund(ctx context.Context, f *domain.Fund) error {
	return m.Called(ctx, f).Error(0)
}

func TestCreate_NormalizesAndIndexes(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	idx := new(MockIndexer)
	repo.On("Create", ctx, mock.Anything).Return(nil)
	idx.On("IndexFund", ctx, mock.Anything).Return(errors.New("es down"))

	svc := NewService(repo, idx, logger.NewNop())
	f, err := svc.Create(ctx, &CreateRequest{
		Name:        "  Aid Fund ",
		CountryCode: "ru",
		Purposes:    []string{"Orphans", "orphans", " water ", ""},
	})

	require.NoError(t, err)
	assert.Equal(t, "Aid Fund", f.Name)
	assert.Equal(t, "RU", f.CountryCode)
	assert.Equal(t, []string{"orphans", "water"}, []string(f.Purposes))
	assert.True(t, f.Active)
	idx.AssertExpectations(t)
}

func TestUpdate_Deactivate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("FindByID", ctx, int64(1)).Return(&domain.Fund{ID: 1, Name: "Aid", Active: true}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(f *domain.Fund) bool { return !f.Active })).Return(nil)

	svc := NewService(repo, nil, logger.NewNop())
	inactive := false
	f, err := svc.Update(ctx, 1, &UpdateRequest{Active: &inactive})

	require.NoError(t, err)
	assert.False(t, f.Active)
	repo.AssertExpectations(t)
}
