package postgres

import (
	"context"

	"sadaka/internal/domain"

	"github.com/jmoiron/sqlx"
)

// TargetRepository resolves intent targets across the entity tables.
type TargetRepository struct {
	funds         *FundRepository
	campaigns     *CampaignRepository
	subscriptions *SubscriptionRepository
	zakat         *ZakatRepository
}

func NewTargetRepository(db *sqlx.DB) *TargetRepository {
	return &TargetRepository{
		funds:         NewFundRepository(db),
		campaigns:     NewCampaignRepository(db),
		subscriptions: NewSubscriptionRepository(db),
		zakat:         NewZakatRepository(db),
	}
}

func (r *TargetRepository) FindFund(ctx context.Context, id int64) (*domain.Fund, error) {
	return r.funds.FindByID(ctx, id)
}

func (r *TargetRepository) FindCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	return r.campaigns.FindByID(ctx, id)
}

func (r *TargetRepository) FindSubscription(ctx context.Context, id int64) (*domain.Subscription, error) {
	return r.subscriptions.FindByID(ctx, id)
}

func (r *TargetRepository) FindZakat(ctx context.Context, id int64) (*domain.ZakatCalculation, error) {
	return r.zakat.FindByID(ctx, id)
}
