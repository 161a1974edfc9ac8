// Package user registers donors and issues their bearer tokens.
package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

type Service struct {
	repo      Repository
	jwtSecret string
	jwtExpiry time.Duration
	logger    logger.Logger
}

func NewService(repo Repository, jwtSecret string, jwtExpiry time.Duration, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		logger:    log,
	}
}

type RegisterRequest struct {
	TelegramID  int64   `json:"telegram_id" validate:"required,gt=0"`
	Username    *string `json:"username,omitempty" validate:"omitempty,max=64"`
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=128"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=128"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Locale      string  `json:"locale" validate:"omitempty,oneof=ru en ar kk uz"`
	CountryCode *string `json:"country_code,omitempty" validate:"omitempty,country_code"`
	Madhab      *string `json:"madhab,omitempty" validate:"omitempty,oneof=hanafi shafii maliki hanbali"`
}

type UpdateRequest struct {
	Username    *string `json:"username,omitempty" validate:"omitempty,max=64"`
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=128"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=128"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Locale      *string `json:"locale,omitempty" validate:"omitempty,oneof=ru en ar kk uz"`
	CountryCode *string `json:"country_code,omitempty" validate:"omitempty,country_code"`
	Madhab      *string `json:"madhab,omitempty" validate:"omitempty,oneof=hanafi shafii maliki hanbali"`
}

// TokenResponse is returned on registration.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Register creates a donor account for a Telegram identity. A telegram_id
// can only be registered once.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	if _, err := s.repo.FindByTelegramID(ctx, req.TelegramID); err == nil {
		return nil, errors.ErrUserAlreadyExists
	} else if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, err
	}

	locale := req.Locale
	if locale == "" {
		locale = "ru"
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:         uuid.New(),
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Email:      lower(req.Email),
		Locale:     locale,
		Country:    upper(req.CountryCode),
		Madhab:     req.Madhab,
		UserType:   domain.UserTypeDonor,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", map[string]interface{}{
		"user_id":     u.ID,
		"telegram_id": u.TelegramID,
	})
	return s.issueToken(u)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies the non-nil fields of req to the user's profile.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, errors.ErrForbidden
	}

	if req.Username != nil {
		u.Username = req.Username
	}
	if req.FirstName != nil {
		u.FirstName = req.FirstName
	}
	if req.LastName != nil {
		u.LastName = req.LastName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Email != nil {
		u.Email = lower(req.Email)
	}
	if req.Locale != nil {
		u.Locale = *req.Locale
	}
	if req.CountryCode != nil {
		u.Country = upper(req.CountryCode)
	}
	if req.Madhab != nil {
		u.Madhab = req.Madhab
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) issueToken(u *domain.User) (*TokenResponse, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id":   u.ID.String(),
		"user_type": string(u.UserType),
		"exp":       expiresAt.Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

func lower(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	return &v
}
