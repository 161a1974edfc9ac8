// Package campaign manages crowdfunding campaigns. Monetary totals are owned
// by the aggregate updater; this package only edits descriptive fields and
// lifecycle status.
package campaign

import (
	"context"
	"strings"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	FindByID(ctx context.Context, id int64) (*domain.Campaign, error)
	List(ctx context.Context, f domain.CampaignFilter) ([]*domain.Campaign, error)
	Count(ctx context.Context, f domain.CampaignFilter) (int, error)
	Update(ctx context.Context, c *domain.Campaign) error
	UpdateStatus(ctx context.Context, id int64, from, to domain.CampaignStatus) (bool, error)
}

// DonationReader reads completed donations for reports.
type DonationReader interface {
	FindCompletedByCampaign(ctx context.Context, campaignID int64, limit int) ([]*domain.Intent, error)
	CountCompletedByCampaign(ctx context.Context, campaignID int64) (int, error)
}

type FundFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.Fund, error)
}

// Indexer mirrors campaigns into search.
type Indexer interface {
	IndexCampaign(ctx context.Context, c *domain.Campaign) error
}

type Service struct {
	repo      Repository
	reader    *CachedReader
	donations DonationReader
	funds     FundFinder
	indexer   Indexer
	logger    logger.Logger
}

func NewService(repo Repository, reader *CachedReader, donations DonationReader, funds FundFinder, indexer Indexer, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		reader:    reader,
		donations: donations,
		funds:     funds,
		indexer:   indexer,
		logger:    log,
	}
}

type CreateRequest struct {
	FundID      *int64          `json:"fund_id,omitempty" validate:"omitempty,gt=0"`
	Title       string          `json:"title" validate:"required,min=3,max=255"`
	Description string          `json:"description" validate:"max=10000"`
	Category    string          `json:"category" validate:"max=64"`
	CountryCode string          `json:"country_code" validate:"omitempty,country_code"`
	GoalAmount  decimal.Decimal `json:"goal_amount" validate:"money"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	BannerURL   *string         `json:"banner_url,omitempty" validate:"omitempty,url"`
}

// UpdateRequest carries the fields to change. Nil means unchanged.
type UpdateRequest struct {
	Title       *string                `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string                `json:"description,omitempty" validate:"omitempty,max=10000"`
	Category    *string                `json:"category,omitempty" validate:"omitempty,max=64"`
	CountryCode *string                `json:"country_code,omitempty" validate:"omitempty,country_code"`
	GoalAmount  *decimal.Decimal       `json:"goal_amount,omitempty"`
	EndDate     *time.Time             `json:"end_date,omitempty"`
	BannerURL   *string                `json:"banner_url,omitempty" validate:"omitempty,url"`
	Status      *domain.CampaignStatus `json:"status,omitempty"`
}

type Report struct {
	CampaignID         int64                 `json:"campaign_id"`
	Title              string                `json:"title"`
	GoalAmount         decimal.Decimal       `json:"goal_amount"`
	CollectedAmount    decimal.Decimal       `json:"collected_amount"`
	ParticipantsCount  int                   `json:"participants_count"`
	TotalDonations     int                   `json:"total_donations"`
	ProgressPercentage decimal.Decimal       `json:"progress_percentage"`
	Status             domain.CampaignStatus `json:"status"`
	CreatedAt          time.Time             `json:"created_at"`
	EndDate            *time.Time            `json:"end_date,omitempty"`
	FundName           *string               `json:"fund_name,omitempty"`
	RecentDonations    []*domain.Intent      `json:"recent_donations"`
}

// Create stores a new campaign. Campaigns start pending unless an admin
// creates them.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, isAdmin bool, req *CreateRequest) (*domain.Campaign, error) {
	if !req.GoalAmount.IsPositive() {
		return nil, errors.Validation("goal_amount must be positive")
	}
	if req.FundID != nil {
		if _, err := s.funds.FindByID(ctx, *req.FundID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		OwnerID:     ownerID,
		FundID:      req.FundID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		CountryCode: strings.ToUpper(req.CountryCode),
		GoalAmount:  req.GoalAmount.Round(2),
		Status:      domain.CampaignPending,
		EndDate:     req.EndDate,
		BannerURL:   req.BannerURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if isAdmin {
		c.Status = domain.CampaignActive
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.index(ctx, c)
	s.logger.Info("Campaign created", map[string]interface{}{
		"campaign_id": c.ID,
		"owner_id":    ownerID,
		"status":      c.Status,
	})
	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.reader.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f domain.CampaignFilter) ([]*domain.Campaign, int, error) {
	campaigns, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// Update edits a campaign. Only the owner or an admin may edit; only an
// admin may activate; the goal is fixed once the campaign is active.
func (s *Service) Update(ctx context.Context, id int64, actor uuid.UUID, isAdmin bool, req *UpdateRequest) (*domain.Campaign, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && c.OwnerID != actor {
		return nil, errors.ErrForbidden
	}
	if req.Status != nil && *req.Status == domain.CampaignActive && !isAdmin {
		return nil, errors.ErrForbidden
	}

	if req.Title != nil {
		c.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Category != nil {
		c.Category = *req.Category
	}
	if req.CountryCode != nil {
		c.CountryCode = strings.ToUpper(*req.CountryCode)
	}
	if req.EndDate != nil {
		c.EndDate = req.EndDate
	}
	if req.BannerURL != nil {
		c.BannerURL = req.BannerURL
	}
	if req.GoalAmount != nil && !req.GoalAmount.Equal(c.GoalAmount) {
		if c.Status != domain.CampaignPending {
			return nil, errors.InvalidState("goal_amount cannot change after activation")
		}
		if !req.GoalAmount.IsPositive() {
			return nil, errors.Validation("goal_amount must be positive")
		}
		c.GoalAmount = req.GoalAmount.Round(2)
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != c.Status {
		if err := s.transition(ctx, c, *req.Status); err != nil {
			return nil, err
		}
	}

	s.invalidate(ctx, id)
	s.index(ctx, c)
	return c, nil
}

// Complete closes an active campaign early. Completing an already completed
// campaign is a no-op.
func (s *Service) Complete(ctx context.Context, id int64, actor uuid.UUID, isAdmin bool) (*domain.Campaign, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && c.OwnerID != actor {
		return nil, errors.ErrForbidden
	}
	if c.Status == domain.CampaignCompleted {
		return c, nil
	}
	if err := s.transition(ctx, c, domain.CampaignCompleted); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.index(ctx, c)
	s.logger.Info("Campaign completed", map[string]interface{}{
		"campaign_id":      id,
		"collected_amount": c.CollectedAmount.String(),
		"participants":     c.ParticipantsCount,
	})
	return c, nil
}

func (s *Service) transition(ctx context.Context, c *domain.Campaign, to domain.CampaignStatus) error {
	if !to.Valid() || !c.Status.CanTransitionTo(to) {
		return errors.ErrInvalidTransition
	}
	ok, err := s.repo.UpdateStatus(ctx, c.ID, c.Status, to)
	if err != nil {
		return err
	}
	if !ok {
		// status changed underneath us, most likely the goal was reached
		return errors.ErrInvalidTransition
	}
	c.Status = to
	if to == domain.CampaignCompleted {
		now := time.Now().UTC()
		c.CompletedAt = &now
	}
	return nil
}

const reportRecentDonations = 10

func (s *Service) Report(ctx context.Context, id int64) (*Report, error) {
	c, err := s.reader.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := s.donations.CountCompletedByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.donations.FindCompletedByCampaign(ctx, id, reportRecentDonations)
	if err != nil {
		return nil, err
	}

	r := &Report{
		CampaignID:         c.ID,
		Title:              c.Title,
		GoalAmount:         c.GoalAmount,
		CollectedAmount:    c.CollectedAmount,
		ParticipantsCount:  c.ParticipantsCount,
		TotalDonations:     total,
		ProgressPercentage: c.Progress(),
		Status:             c.Status,
		CreatedAt:          c.CreatedAt,
		EndDate:            c.EndDate,
		RecentDonations:    recent,
	}
	if c.FundID != nil {
		if fund, err := s.funds.FindByID(ctx, *c.FundID); err == nil {
			r.FundName = &fund.Name
		}
	}
	return r, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if err := s.reader.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Campaign cache invalidation failed", map[string]interface{}{
			"campaign_id": id,
			"error":       err.Error(),
		})
	}
}

func (s *Service) index(ctx context.Context, c *domain.Campaign) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexCampaign(ctx, c); err != nil {
		s.logger.Warn("Campaign indexing failed", map[string]interface{}{
			"campaign_id": c.ID,
			"error":       err.Error(),
		})
	}
}
