package postgres

import (
	"context"
	"fmt"
	"strings"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/jmoiron/sqlx"
)

const fundColumns = `
	id, name, description, country_code, purposes, website, logo_url,
	verified, active, created_at, updated_at`

type FundRepository struct {
	db *sqlx.DB
}

func NewFundRepository(db *sqlx.DB) *FundRepository {
	return &FundRepository{db: db}
}

func (r *FundRepository) Create(ctx context.Context, f *domain.Fund) error {
	query := `
		INSERT INTO funds (
			name, description, country_code, purposes, website, logo_url,
			verified, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		f.Name, f.Description, f.CountryCode, f.Purposes, f.Website, f.LogoURL,
		f.Verified, f.Active, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return errors.Persistence(err, "failed to create fund")
	}
	return nil
}

func (r *FundRepository) FindByID(ctx context.Context, id int64) (*domain.Fund, error) {
	var f domain.Fund
	query := `SELECT ` + fundColumns + ` FROM funds WHERE id = $1`
	if err := r.db.GetContext(ctx, &f, query, id); err != nil {
		return nil, notFound(err, errors.ErrFundNotFound, "failed to find fund")
	}
	return &f, nil
}

func fundWhere(f domain.FundFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.OnlyActive {
		conds = append(conds, "active = TRUE")
	}
	if f.CountryCode != "" {
		args = append(args, strings.ToUpper(f.CountryCode))
		conds = append(conds, fmt.Sprintf("country_code = $%d", len(args)))
	}
	if f.Purpose != "" {
		args = append(args, f.Purpose)
		conds = append(conds, fmt.Sprintf("$%d = ANY(purposes)", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *FundRepository) List(ctx context.Context, f domain.FundFilter) ([]*domain.Fund, error) {
	where, args := fundWhere(f)
	page := f.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT %s FROM funds%s ORDER BY verified DESC, name ASC LIMIT $%d OFFSET $%d`,
		fundColumns, where, len(args)-1, len(args))

	funds := []*domain.Fund{}
	if err := r.db.SelectContext(ctx, &funds, query, args...); err != nil {
		return nil, errors.Persistence(err, "failed to list funds")
	}
	return funds, nil
}

func (r *FundRepository) Count(ctx context.Context, f domain.FundFilter) (int, error) {
	where, args := fundWhere(f)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM funds`+where, args...); err != nil {
		return 0, errors.Persistence(err, "failed to count funds")
	}
	return n, nil
}

func (r *FundRepository) Update(ctx context.Context, f *domain.Fund) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE funds SET
			name = $1, description = $2, country_code = $3, purposes = $4,
			website = $5, logo_url = $6, verified = $7, active = $8, updated_at = $9
		WHERE id = $10`,
		f.Name, f.Description, f.CountryCode, f.Purposes,
		f.Website, f.LogoURL, f.Verified, f.Active, f.UpdatedAt, f.ID,
	)
	if err != nil {
		return errors.Persistence(err, "failed to update fund")
	}
	ok, err := affected(res, "failed to update fund")
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrFundNotFound
	}
	return nil
}
