package postgres

import (
	"context"
	"fmt"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const applicationColumns = `
	id, organization_name, contact_name, email, phone, country_code, website,
	description, status, reviewed_by, review_notes, reviewed_at, created_at, updated_at`

type PartnerRepository struct {
	db *sqlx.DB
}

func NewPartnerRepository(db *sqlx.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

func (r *PartnerRepository) Create(ctx context.Context, a *domain.PartnerApplication) error {
	query := `
		INSERT INTO partner_applications (
			organization_name, contact_name, email, phone, country_code, website,
			description, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.Organization, a.ContactName, a.Email, a.Phone, a.CountryCode, a.Website,
		a.Description, a.Status, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return errors.Persistence(err, "failed to create partner application")
	}
	return nil
}

func (r *PartnerRepository) FindByID(ctx context.Context, id int64) (*domain.PartnerApplication, error) {
	var a domain.PartnerApplication
	query := `SELECT ` + applicationColumns + ` FROM partner_applications WHERE id = $1`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, notFound(err, errors.ErrApplicationNotFound, "failed to find partner application")
	}
	return &a, nil
}

func (r *PartnerRepository) List(ctx context.Context, f domain.ApplicationFilter) ([]*domain.PartnerApplication, int, error) {
	where := ""
	args := []interface{}{}
	if f.Status != "" {
		where = " WHERE status = $1"
		args = append(args, f.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM partner_applications`+where, args...); err != nil {
		return nil, 0, errors.Persistence(err, "failed to count partner applications")
	}

	page := f.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT %s FROM partner_applications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		applicationColumns, where, len(args)-1, len(args))

	apps := []*domain.PartnerApplication{}
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, errors.Persistence(err, "failed to list partner applications")
	}
	return apps, total, nil
}

// Review records a decision on a pending application. It reports false when
// the application was already decided.
func (r *PartnerRepository) Review(ctx context.Context, id int64, status domain.ApplicationStatus, reviewer uuid.UUID, notes *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE partner_applications SET
			status = $1, reviewed_by = $2, review_notes = $3,
			reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		status, reviewer, notes, id, domain.ApplicationPending,
	)
	if err != nil {
		return false, errors.Persistence(err, "failed to review partner application")
	}
	return affected(res, "failed to review partner application")
}
