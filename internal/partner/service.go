package partner

import (
	"context"
	"strings"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *domain.PartnerApplication) error
	FindByID(ctx context.Context, id int64) (*domain.PartnerApplication, error)
	List(ctx context.Context, f domain.ApplicationFilter) ([]*domain.PartnerApplication, int, error)
	Review(ctx context.Context, id int64, status domain.ApplicationStatus, reviewer uuid.UUID, notes *string) (bool, error)
}

type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

type ApplyRequest struct {
	Organization string  `json:"organization_name" validate:"required,min=2,max=255"`
	ContactName  string  `json:"contact_name" validate:"required,max=255"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	CountryCode  string  `json:"country_code" validate:"required,country_code"`
	Website      *string `json:"website,omitempty" validate:"omitempty,url"`
	Description  string  `json:"description" validate:"required,min=10,max=10000"`
}

type ReviewRequest struct {
	Status domain.ApplicationStatus `json:"status" validate:"required,oneof=approved rejected"`
	Notes  *string                  `json:"review_notes,omitempty" validate:"omitempty,max=2000"`
}

func (s *Service) Apply(ctx context.Context, req *ApplyRequest) (*domain.PartnerApplication, error) {
	now := time.Now().UTC()
	app := &domain.PartnerApplication{
		Organization: strings.TrimSpace(req.Organization),
		ContactName:  strings.TrimSpace(req.ContactName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		CountryCode:  strings.ToUpper(req.CountryCode),
		Website:      req.Website,
		Description:  req.Description,
		Status:       domain.ApplicationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info("Partner application received", map[string]interface{}{
		"application_id": app.ID,
		"organization":   app.Organization,
	})
	return app, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.PartnerApplication, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f domain.ApplicationFilter) ([]*domain.PartnerApplication, int, error) {
	return s.repo.List(ctx, f)
}

// Review approves or rejects a pending application. Decisions are final.
func (s *Service) Review(ctx context.Context, id int64, reviewer uuid.UUID, req *ReviewRequest) (*domain.PartnerApplication, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(req.Status) {
		return nil, errors.ErrInvalidTransition
	}

	ok, err := s.repo.Review(ctx, id, req.Status, reviewer, req.Notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidTransition
	}

	now := time.Now().UTC()
	app.Status = req.Status
	app.ReviewedBy = &reviewer
	app.ReviewNotes = req.Notes
	app.ReviewedAt = &now
	app.UpdatedAt = now

	s.logger.Info("Partner application reviewed", map[string]interface{}{
		"application_id": id,
		"status":         req.Status,
		"reviewer":       reviewer,
	})
	return app, nil
}
