package zakat

import (
	"context"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Upsert(ctx context.Context, calc *domain.ZakatCalculation) error
	FindByID(ctx context.Context, id int64) (*domain.ZakatCalculation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.ZakatCalculation, error)
	MarkPaid(ctx context.Context, id int64, paymentRef string) (bool, error)
}

// CalculateRequest is the user's declaration of assets and liabilities.
type CalculateRequest struct {
	CashAtHome          decimal.Decimal `json:"cash_at_home" validate:"gte=0"`
	BankAccounts        decimal.Decimal `json:"bank_accounts" validate:"gte=0"`
	SharesValue         decimal.Decimal `json:"shares_value" validate:"gte=0"`
	GoodsProfit         decimal.Decimal `json:"goods_profit" validate:"gte=0"`
	GoldSilverValue     decimal.Decimal `json:"gold_silver_value" validate:"gte=0"`
	PropertyInvestments decimal.Decimal `json:"property_investments" validate:"gte=0"`
	OtherIncome         decimal.Decimal `json:"other_income" validate:"gte=0"`
	Debts               decimal.Decimal `json:"debts" validate:"gte=0"`
	Expenses            decimal.Decimal `json:"expenses" validate:"gte=0"`
}

// NisabInfo describes the active threshold.
type NisabInfo struct {
	Nisab    decimal.Decimal `json:"nisab"`
	Rate     decimal.Decimal `json:"rate"`
	Currency string          `json:"currency"`
}

type Service struct {
	repo     Repository
	calc     *Calculator
	currency string
	logger   logger.Logger
}

func NewService(repo Repository, calc *Calculator, currency string, log logger.Logger) *Service {
	return &Service{repo: repo, calc: calc, currency: currency, logger: log}
}

// Calculate computes and stores the user's zakat, replacing any previous
// calculation's inputs and totals. A paid calculation stays paid.
func (s *Service) Calculate(ctx context.Context, userID uuid.UUID, req *CalculateRequest) (*domain.ZakatCalculation, error) {
	assets := domain.ZakatAssets{
		CashAtHome:          req.CashAtHome,
		BankAccounts:        req.BankAccounts,
		SharesValue:         req.SharesValue,
		GoodsProfit:         req.GoodsProfit,
		GoldSilverValue:     req.GoldSilverValue,
		PropertyInvestments: req.PropertyInvestments,
		OtherIncome:         req.OtherIncome,
	}
	liabilities := domain.ZakatLiabilities{Debts: req.Debts, Expenses: req.Expenses}

	res, err := s.calc.Calculate(assets, liabilities)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	calc := &domain.ZakatCalculation{
		UserID:           userID,
		ZakatAssets:      roundAssets(assets),
		ZakatLiabilities: domain.ZakatLiabilities{Debts: req.Debts.Round(2), Expenses: req.Expenses.Round(2)},
		TotalAssets:      res.TotalAssets,
		TotalLiabilities: res.TotalLiabilities,
		ZakatableAmount:  res.ZakatableAmount,
		NisabAmount:      res.NisabAmount,
		ZakatAmount:      res.ZakatAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Upsert(ctx, calc); err != nil {
		s.logger.Error("Failed to store zakat calculation", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Zakat calculated", map[string]interface{}{
		"user_id":      userID,
		"zakat_id":     calc.ID,
		"zakat_amount": calc.ZakatAmount.String(),
	})
	return calc, nil
}

// GetForUser returns the user's stored calculation.
func (s *Service) GetForUser(ctx context.Context, userID uuid.UUID) (*domain.ZakatCalculation, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.ZakatCalculation, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Nisab() NisabInfo {
	return NisabInfo{Nisab: s.calc.Nisab(), Rate: s.calc.Rate(), Currency: s.currency}
}

// ConfirmPayment marks a calculation paid outside the provider flow.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, paymentRef string) (*domain.ZakatCalculation, error) {
	calc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if calc.IsPaid {
		return nil, errors.ErrZakatAlreadyPaid
	}
	if !calc.ZakatAmount.IsPositive() {
		return nil, errors.ErrZakatNothingDue
	}

	ok, err := s.repo.MarkPaid(ctx, id, paymentRef)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrZakatAlreadyPaid
	}

	calc.IsPaid = true
	calc.PaymentID = &paymentRef
	s.logger.Info("Zakat payment confirmed", map[string]interface{}{
		"zakat_id":    id,
		"payment_ref": paymentRef,
	})
	return calc, nil
}
