package subscription

import (
	"context"
	"strings"
	"time"

	"sadaka/internal/domain"
	"sadaka/internal/payment"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, s *domain.Subscription) error
	FindByID(ctx context.Context, id int64) (*domain.Subscription, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.SubscriptionStatus) (bool, error)
	Resume(ctx context.Context, id int64, next time.Time) (bool, error)
}

type FundFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.Fund, error)
}

// IntentCreator opens the payment intent for a charge.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req *payment.CreateIntentRequest) (*payment.IntentResponse, error)
}

type Service struct {
	repo    Repository
	funds   FundFinder
	intents IntentCreator
	logger  logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, funds FundFinder, intents IntentCreator, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		funds:   funds,
		intents: intents,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type CreateRequest struct {
	FundID        *int64               `json:"fund_id,omitempty" validate:"omitempty,gt=0"`
	Plan          string               `json:"plan" validate:"required,max=32"`
	Amount        decimal.Decimal      `json:"amount" validate:"money"`
	Currency      domain.Currency      `json:"currency" validate:"omitempty,currency"`
	Frequency     domain.Frequency     `json:"frequency" validate:"omitempty,frequency"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	Purpose       *string              `json:"purpose,omitempty" validate:"omitempty,max=500"`
}

// Create starts an active subscription. The first charge is due one
// interval from now.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*domain.Subscription, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	if req.FundID != nil {
		fund, err := s.funds.FindByID(ctx, *req.FundID)
		if err != nil {
			return nil, err
		}
		if !fund.Active {
			return nil, errors.ErrFundInactive
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = domain.RUB
	}
	frequency := req.Frequency
	if frequency == "" {
		frequency = domain.FrequencyMonthly
	}

	now := s.now()
	next := frequency.NextPaymentDate(now)
	sub := &domain.Subscription{
		UserID:          userID,
		FundID:          req.FundID,
		Plan:            strings.ToLower(strings.TrimSpace(req.Plan)),
		Amount:          req.Amount.Round(2),
		Currency:        currency,
		Frequency:       frequency,
		PaymentMethod:   req.PaymentMethod,
		Purpose:         req.Purpose,
		Status:          domain.SubscriptionActive,
		NextPaymentDate: &next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription created", map[string]interface{}{
		"subscription_id": sub.ID,
		"user_id":         userID,
		"frequency":       frequency,
		"amount":          sub.Amount.String(),
	})
	return sub, nil
}

// Get returns a subscription owned by userID.
func (s *Service) Get(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, errors.ErrSubscriptionMissing
	}
	return sub, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, status domain.SubscriptionStatus) ([]*domain.Subscription, error) {
	subs, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return subs, nil
	}
	filtered := subs[:0]
	for _, sub := range subs {
		if sub.Status == status {
			filtered = append(filtered, sub)
		}
	}
	return filtered, nil
}

func (s *Service) Pause(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error) {
	return s.transition(ctx, id, userID, domain.SubscriptionPaused)
}

func (s *Service) Cancel(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error) {
	return s.transition(ctx, id, userID, domain.SubscriptionCancelled)
}

// Resume reactivates a paused subscription and pushes the next charge one
// interval out.
func (s *Service) Resume(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.SubscriptionActive {
		return sub, nil
	}
	if !sub.Status.CanTransitionTo(domain.SubscriptionActive) {
		return nil, errors.ErrInvalidTransition
	}

	next := sub.Frequency.NextPaymentDate(s.now())
	ok, err := s.repo.Resume(ctx, id, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidTransition
	}
	sub.Status = domain.SubscriptionActive
	sub.NextPaymentDate = &next
	s.logStatus(sub)
	return sub, nil
}

func (s *Service) transition(ctx context.Context, id int64, userID uuid.UUID, to domain.SubscriptionStatus) (*domain.Subscription, error) {
	sub, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status == to {
		return sub, nil
	}
	if !sub.Status.CanTransitionTo(to) {
		return nil, errors.ErrInvalidTransition
	}

	ok, err := s.repo.UpdateStatus(ctx, id, sub.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidTransition
	}
	sub.Status = to
	s.logStatus(sub)
	return sub, nil
}

func (s *Service) logStatus(sub *domain.Subscription) {
	s.logger.Info("Subscription status changed", map[string]interface{}{
		"subscription_id": sub.ID,
		"status":          sub.Status,
	})
}

// Charge opens a payment intent for the subscription's amount. Completion of
// that intent moves next_payment_date forward.
func (s *Service) Charge(ctx context.Context, id int64, userID uuid.UUID) (*payment.IntentResponse, error) {
	sub, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.intents.CreateIntent(ctx, &payment.CreateIntentRequest{
		UserID:        userID,
		TargetType:    domain.TargetSubscription,
		TargetID:      sub.ID,
		PaymentMethod: sub.PaymentMethod,
	})
}
