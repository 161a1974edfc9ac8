package postgres

import (
	"context"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `
	id, telegram_id, username, first_name, last_name, phone, email, locale,
	country_code, madhab, user_type, is_active, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (
			id, telegram_id, username, first_name, last_name, phone, email, locale,
			country_code, madhab, user_type, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.TelegramID, u.Username, u.FirstName, u.LastName, u.Phone, u.Email, u.Locale,
		u.Country, u.Madhab, u.UserType, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return errors.ErrUserAlreadyExists
		}
		return errors.Persistence(err, "failed to create user")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, notFound(err, errors.ErrUserNotFound, "failed to find user")
	}
	return &u, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var u domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	if err := r.db.GetContext(ctx, &u, query, telegramID); err != nil {
		return nil, notFound(err, errors.ErrUserNotFound, "failed to find user")
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			username = $1, first_name = $2, last_name = $3, phone = $4, email = $5,
			locale = $6, country_code = $7, madhab = $8, updated_at = $9
		WHERE id = $10`,
		u.Username, u.FirstName, u.LastName, u.Phone, u.Email,
		u.Locale, u.Country, u.Madhab, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return errors.Persistence(err, "failed to update user")
	}
	ok, err := affected(res, "failed to update user")
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrUserNotFound
	}
	return nil
}
