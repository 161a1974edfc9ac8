package fund

import (
	"context"
	"strings"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/logger"

	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, f *domain.Fund) error
	FindByID(ctx context.Context, id int64) (*domain.Fund, error)
	List(ctx context.Context, f domain.FundFilter) ([]*domain.Fund, error)
	Count(ctx context.Context, f domain.FundFilter) (int, error)
	Update(ctx context.Context, f *domain.Fund) error
}

type Indexer interface {
	IndexFund(ctx context.Context, f *domain.Fund) error
}

type Service struct {
	repo    Repository
	indexer Indexer
	logger  logger.Logger
}

func NewService(repo Repository, indexer Indexer, log logger.Logger) *Service {
	return &Service{repo: repo, indexer: indexer, logger: log}
}

type CreateRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=255"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
	CountryCode string   `json:"country_code" validate:"required,country_code"`
	Purposes    []string `json:"purposes" validate:"dive,min=1,max=64"`
	Website     *string  `json:"website,omitempty" validate:"omitempty,url"`
	LogoURL     *string  `json:"logo_url,omitempty" validate:"omitempty,url"`
	Verified    bool     `json:"verified"`
}

type UpdateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
	CountryCode *string  `json:"country_code,omitempty" validate:"omitempty,country_code"`
	Purposes    []string `json:"purposes,omitempty" validate:"omitempty,dive,min=1,max=64"`
	Website     *string  `json:"website,omitempty" validate:"omitempty,url"`
	LogoURL     *string  `json:"logo_url,omitempty" validate:"omitempty,url"`
	Verified    *bool    `json:"verified,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*domain.Fund, error) {
	now := time.Now().UTC()
	f := &domain.Fund{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CountryCode: strings.ToUpper(req.CountryCode),
		Purposes:    pq.StringArray(normalizePurposes(req.Purposes)),
		Website:     req.Website,
		LogoURL:     req.LogoURL,
		Verified:    req.Verified,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.index(ctx, f)
	s.logger.Info("Fund created", map[string]interface{}{"fund_id": f.ID, "name": f.Name})
	return f, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Fund, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f domain.FundFilter) ([]*domain.Fund, int, error) {
	funds, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return funds, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (*domain.Fund, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		f.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		f.Description = req.Description
	}
	if req.CountryCode != nil {
		f.CountryCode = strings.ToUpper(*req.CountryCode)
	}
	if req.Purposes != nil {
		f.Purposes = pq.StringArray(normalizePurposes(req.Purposes))
	}
	if req.Website != nil {
		f.Website = req.Website
	}
	if req.LogoURL != nil {
		f.LogoURL = req.LogoURL
	}
	if req.Verified != nil {
		f.Verified = *req.Verified
	}
	if req.Active != nil {
		f.Active = *req.Active
	}
	f.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	s.index(ctx, f)
	return f, nil
}

// normalizePurposes lowercases, trims and de-duplicates, keeping order.
func normalizePurposes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (s *Service) index(ctx context.Context, f *domain.Fund) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexFund(ctx, f); err != nil {
		s.logger.Warn("Fund indexing failed", map[string]interface{}{
			"fund_id": f.ID,
			"error":   err.Error(),
		})
	}
}
