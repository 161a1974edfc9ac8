package zakat

import (
	"context"
	"testing"

	"sadaka/internal/domain"
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

func (m *MockRepository) Upsert(ctx context.Context, calc *domain.ZakatCalculation) error {
	args := m.Called(ctx, calc)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id int64) (*domain.ZakatCalculation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ZakatCalculation), args.Error(1)
}

func (m *MockRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.ZakatCalculation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ZakatCalculation), args.Error(1)
}

func (m *MockRepository) MarkPaid(ctx context.Context, id int64, paymentRef string) (bool, error) {
	args := m.Called(ctx, id, paymentRef)
	return args.Bool(0), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator(DefaultNisab, DefaultRate)

	tests := []struct {
		name        string
		assets      domain.ZakatAssets
		liabilities domain.ZakatLiabilities
		zakatable   string
		zakat       string
		payable     bool
	}{
		{
			name:      "below nisab",
			assets:    domain.ZakatAssets{CashAtHome: d("100000")},
			zakatable: "100000",
			zakat:     "0",
		},
		{
			name:      "above nisab",
			assets:    domain.ZakatAssets{CashAtHome: d("100000"), BankAccounts: d("900000")},
			zakatable: "1000000",
			zakat:     "25000",
			payable:   true,
		},
		{
			name:      "exactly nisab is not payable",
			assets:    domain.ZakatAssets{BankAccounts: d("952389")},
			zakatable: "952389",
			zakat:     "0",
		},
		{
			name:        "liabilities can push below zero",
			assets:      domain.ZakatAssets{GoodsProfit: d("1000")},
			liabilities: domain.ZakatLiabilities{Debts: d("5000"), Expenses: d("500")},
			zakatable:   "-4500",
			zakat:       "0",
		},
		{
			name: "all categories count",
			assets: domain.ZakatAssets{
				CashAtHome: d("200000"), BankAccounts: d("200000"), SharesValue: d("200000"),
				GoodsProfit: d("200000"), GoldSilverValue: d("200000"),
				PropertyInvestments: d("200000"), OtherIncome: d("200000"),
			},
			liabilities: domain.ZakatLiabilities{Debts: d("100000"), Expenses: d("100000")},
			zakatable:   "1200000",
			zakat:       "30000",
			payable:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := calc.Calculate(tt.assets, tt.liabilities)
			require.NoError(t, err)
			assert.Equal(t, tt.zakatable, res.ZakatableAmount.String())
			assert.Equal(t, tt.zakat, res.ZakatAmount.String())
			assert.Equal(t, tt.payable, res.IsPayable)
			assert.True(t, res.NisabAmount.Equal(DefaultNisab))
		})
	}
}

func TestCalculator_RejectsNegative(t *testing.T) {
	calc := NewCalculator(decimal.Zero, decimal.Zero)

	_, err := calc.Calculate(domain.ZakatAssets{CashAtHome: d("-1")}, domain.ZakatLiabilities{})
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
	assert.True(t, calc.Nisab().Equal(DefaultNisab))
}

func TestService_Calculate_Upserts(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
	userID := uuid.New()

	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *domain.ZakatCalculation) bool {
		return c.UserID == userID && c.ZakatAmount.Equal(d("25000")) && !c.IsPaid && c.PaymentID == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.ZakatCalculation).ID = 11
	}).Return(nil).Once()

	calc, err := svc.Calculate(context.Background(), userID, &CalculateRequest{
		CashAtHome:   d("100000"),
		BankAccounts: d("900000"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), calc.ID)
	assert.Equal(t, "1000000", calc.TotalAssets.String())
	repo.AssertExpectations(t)
}

func TestService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("marks unpaid calculation", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
		repo.On("FindByID", ctx, int64(5)).Return(&domain.ZakatCalculation{ID: 5, ZakatAmount: d("25000")}, nil)
		repo.On("MarkPaid", ctx, int64(5), "manual-1").Return(true, nil)

		calc, err := svc.ConfirmPayment(ctx, 5, "manual-1")
		require.NoError(t, err)
		assert.True(t, calc.IsPaid)
		assert.Equal(t, "manual-1", *calc.PaymentID)
	})

	t.Run("already paid is conflict", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
		repo.On("FindByID", ctx, int64(5)).Return(&domain.ZakatCalculation{ID: 5, ZakatAmount: d("25000"), IsPaid: true}, nil)

		_, err := svc.ConfirmPayment(ctx, 5, "manual-1")
		assert.True(t, errors.Is(err, errors.ErrZakatAlreadyPaid))
		assert.Equal(t, errors.KindConflict, errors.KindOf(err))
		repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost race is conflict", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
		repo.On("FindByID", ctx, int64(5)).Return(&domain.ZakatCalculation{ID: 5, ZakatAmount: d("25000")}, nil)
		repo.On("MarkPaid", ctx, int64(5), "manual-1").Return(false, nil)

		_, err := svc.ConfirmPayment(ctx, 5, "manual-1")
		assert.True(t, errors.Is(err, errors.ErrZakatAlreadyPaid))
	})

	t.Run("nothing due", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
		repo.On("FindByID", ctx, int64(5)).Return(&domain.ZakatCalculation{ID: 5, ZakatAmount: decimal.Zero}, nil)

		_, err := svc.ConfirmPayment(ctx, 5, "manual-1")
		assert.True(t, errors.Is(err, errors.ErrZakatNothingDue))
		assert.Equal(t, errors.KindConflict, errors.KindOf(err))
		repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_RecalculatedPaidZakatCannotBePaidAgain(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
	userID := uuid.New()
	ref := "pay-1"

	// the stored row is already paid; upsert hands its payment state back
	repo.On("Upsert", ctx, mock.AnythingOfType("*domain.ZakatCalculation")).Run(func(args mock.Arguments) {
		c := args.Get(1).(*domain.ZakatCalculation)
		c.ID = 11
		c.IsPaid = true
		c.PaymentID = &ref
	}).Return(nil).Once()

	calc, err := svc.Calculate(ctx, userID, &CalculateRequest{
		CashAtHome:   d("200000"),
		BankAccounts: d("1000000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "30000", calc.ZakatAmount.String())
	assert.True(t, calc.IsPaid)
	require.NotNil(t, calc.PaymentID)
	assert.Equal(t, "pay-1", *calc.PaymentID)

	repo.On("FindByID", ctx, int64(11)).Return(calc, nil)

	_, err = svc.ConfirmPayment(ctx, 11, "pay-2")
	assert.True(t, errors.Is(err, errors.ErrZakatAlreadyPaid))
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestService_Nisab(t *testing.T) {
	svc := NewService(new(MockRepository), NewCalculator(DefaultNisab, DefaultRate), "RUB", logger.NewNop())
	info := svc.Nisab()
	assert.Equal(t, "952389", info.Nisab.String())
	assert.Equal(t, "0.025", info.Rate.String())
	assert.Equal(t, "RUB", info.Currency)
}
