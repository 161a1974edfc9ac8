package payment

import (
	"context"
	"strings"
	"time"

	"sadaka/internal/aggregate"
	"sadaka/internal/domain"
	"sadaka/internal/events"
	"sadaka/internal/ledger"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type IntentRepository interface {
	Create(ctx context.Context, intent *domain.Intent) error
	FindByID(ctx context.Context, id int64) (*domain.Intent, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Intent, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
	SetExternalPaymentID(ctx context.Context, id int64, ref string) error
}

// TargetRepository reads the entities an intent can pay for.
type TargetRepository interface {
	FindFund(ctx context.Context, id int64) (*domain.Fund, error)
	FindCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	FindSubscription(ctx context.Context, id int64) (*domain.Subscription, error)
	FindZakat(ctx context.Context, id int64) (*domain.ZakatCalculation, error)
}

// CampaignInvalidator drops cached campaign reads.
type CampaignInvalidator interface {
	Invalidate(ctx context.Context, campaignID int64) error
}

// CampaignIndexer mirrors campaign totals into search.
type CampaignIndexer interface {
	UpdateCampaignTotals(ctx context.Context, totals *ledger.CampaignTotals) error
}

type Service struct {
	intents       IntentRepository
	targets       TargetRepository
	store         ledger.Store
	updater       *aggregate.Updater
	providers     *Registry
	publisher     events.Publisher
	campaignCache CampaignInvalidator
	indexer       CampaignIndexer
	zakatCurrency domain.Currency
	logger        logger.Logger
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithCampaignCache(c CampaignInvalidator) Option { return func(s *Service) { s.campaignCache = c } }

func WithIndexer(i CampaignIndexer) Option { return func(s *Service) { s.indexer = i } }

func WithZakatCurrency(c domain.Currency) Option { return func(s *Service) { s.zakatCurrency = c } }

func NewService(
	intents IntentRepository,
	targets TargetRepository,
	store ledger.Store,
	updater *aggregate.Updater,
	providers *Registry,
	log logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		intents:       intents,
		targets:       targets,
		store:         store,
		updater:       updater,
		providers:     providers,
		publisher:     events.NewFallback(log),
		zakatCurrency: domain.RUB,
		logger:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateIntentRequest struct {
	UserID        uuid.UUID            `json:"-"`
	TargetType    domain.TargetKind    `json:"target_type" validate:"required,oneof=fund campaign subscription zakat"`
	TargetID      int64                `json:"target_id" validate:"required,gt=0"`
	Amount        decimal.Decimal      `json:"amount" validate:"gte=0,money"`
	Currency      domain.Currency      `json:"currency" validate:"omitempty,currency"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	Purpose       string               `json:"purpose" validate:"max=500"`
}

type IntentResponse struct {
	Intent  *domain.Intent `json:"intent"`
	Payment *Checkout      `json:"payment"`
}

// CreateIntent records a pending intent against an existing target and
// returns the provider checkout. No aggregate is touched.
func (s *Service) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*IntentResponse, error) {
	if !req.PaymentMethod.Valid() {
		return nil, errors.ErrInvalidMethod
	}
	provider, err := s.providers.Get(string(req.PaymentMethod))
	if err != nil {
		return nil, errors.ErrInvalidMethod
	}

	intent := &domain.Intent{
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.IntentPending,
	}
	if intent.Currency == "" {
		intent.Currency = domain.RUB
	}
	if p := strings.TrimSpace(req.Purpose); p != "" {
		intent.Purpose = &p
	}
	intent.SetTarget(req.TargetType, req.TargetID)

	description, err := s.resolveTarget(ctx, req, intent)
	if err != nil {
		return nil, err
	}

	if !intent.Currency.Valid() {
		return nil, errors.ErrInvalidCurrency
	}
	if !intent.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	if _, _, ok := intent.Target(); !ok {
		return nil, errors.ErrInvalidTarget
	}

	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now

	if err := s.intents.Create(ctx, intent); err != nil {
		s.logger.Error("Failed to create intent", map[string]interface{}{
			"user_id": req.UserID,
			"target":  req.TargetType,
			"error":   err.Error(),
		})
		return nil, err
	}

	checkout, err := provider.Checkout(intent, description)
	if err != nil {
		return nil, errors.Wrap(err, "build checkout")
	}
	if checkout.ExternalID != "" {
		if err := s.intents.SetExternalPaymentID(ctx, intent.ID, checkout.ExternalID); err != nil {
			return nil, err
		}
		ref := checkout.ExternalID
		intent.ExternalPaymentID = &ref
	}

	s.logger.Info("Payment intent created", map[string]interface{}{
		"intent_id":      intent.ID,
		"user_id":        intent.UserID,
		"target":         req.TargetType,
		"target_id":      req.TargetID,
		"amount":         intent.Amount.String(),
		"currency":       intent.Currency,
		"payment_method": intent.PaymentMethod,
	})

	return &IntentResponse{Intent: intent, Payment: checkout}, nil
}

// resolveTarget checks the target accepts money and fills amount and
// currency where the target dictates them. It returns the checkout description.
func (s *Service) resolveTarget(ctx context.Context, req *CreateIntentRequest, intent *domain.Intent) (string, error) {
	switch req.TargetType {
	case domain.TargetFund:
		fund, err := s.targets.FindFund(ctx, req.TargetID)
		if err != nil {
			return "", err
		}
		if !fund.Active {
			return "", errors.ErrFundInactive
		}
		return "Donation to " + fund.Name, nil

	case domain.TargetCampaign:
		campaign, err := s.targets.FindCampaign(ctx, req.TargetID)
		if err != nil {
			return "", err
		}
		if !campaign.AcceptsDonations() {
			return "", errors.ErrCampaignNotActive
		}
		return "Campaign: " + campaign.Title, nil

	case domain.TargetSubscription:
		sub, err := s.targets.FindSubscription(ctx, req.TargetID)
		if err != nil {
			return "", err
		}
		if sub.UserID != req.UserID {
			return "", errors.ErrForbidden
		}
		if sub.Status != domain.SubscriptionActive {
			return "", errors.ErrSubscriptionPaused
		}
		intent.Amount = sub.Amount
		intent.Currency = sub.Currency
		return "Subscription " + sub.Plan + " (" + string(sub.Frequency) + ")", nil

	case domain.TargetZakat:
		calc, err := s.targets.FindZakat(ctx, req.TargetID)
		if err != nil {
			return "", err
		}
		if calc.UserID != req.UserID {
			return "", errors.ErrForbidden
		}
		if calc.IsPaid {
			return "", errors.ErrZakatAlreadyPaid
		}
		if !calc.ZakatAmount.IsPositive() {
			return "", errors.ErrZakatNothingDue
		}
		intent.Amount = calc.ZakatAmount
		intent.Currency = s.zakatCurrency
		return "Zakat payment", nil
	}
	return "", errors.ErrInvalidTarget
}

// GetIntent returns an intent visible to the caller.
func (s *Service) GetIntent(ctx context.Context, id int64, userID uuid.UUID, isAdmin bool) (*domain.Intent, error) {
	intent, err := s.intents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && intent.UserID != userID {
		return nil, errors.ErrIntentNotFound
	}
	return intent, nil
}

func (s *Service) ListUserIntents(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Intent, int, error) {
	intents, err := s.intents.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.intents.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return intents, total, nil
}

// ConfirmIntent completes a pending intent outside the webhook path. A
// repeated confirmation is a no-op.
func (s *Service) ConfirmIntent(ctx context.Context, id int64, transactionID string) (*SettleResult, error) {
	return s.manualSettle(ctx, id, domain.IntentCompleted, transactionID)
}

// RefundIntent moves a completed intent to refunded.
func (s *Service) RefundIntent(ctx context.Context, id int64) (*SettleResult, error) {
	return s.manualSettle(ctx, id, domain.IntentRefunded, "")
}

// FailIntent fails a pending intent. Used by the stale intent sweeper.
func (s *Service) FailIntent(ctx context.Context, id int64) (*SettleResult, error) {
	return s.manualSettle(ctx, id, domain.IntentFailed, "")
}

func (s *Service) manualSettle(ctx context.Context, id int64, to domain.IntentStatus, transactionID string) (*SettleResult, error) {
	intent, err := s.intents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent.Status == to {
		return &SettleResult{Intent: intent, Applied: false}, nil
	}
	if !intent.Status.CanTransitionTo(to) {
		return nil, errors.ErrInvalidTransition
	}

	var ref *string
	if transactionID != "" {
		ref = &transactionID
	}
	return s.settle(ctx, intent, to, ref)
}
