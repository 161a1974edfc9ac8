package postgres

import (
	"context"
	"fmt"
	"strings"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/jmoiron/sqlx"
)

const campaignColumns = `
	id, owner_id, fund_id, title, description, category, country_code,
	goal_amount, collected_amount, participants_count, status, end_date,
	banner_url, completed_at, created_at, updated_at`

type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (
			owner_id, fund_id, title, description, category, country_code,
			goal_amount, collected_amount, participants_count, status, end_date,
			banner_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		c.OwnerID, c.FundID, c.Title, c.Description, c.Category, c.CountryCode,
		c.GoalAmount, c.Status, c.EndDate, c.BannerURL, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return errors.Persistence(err, "failed to create campaign")
	}
	return nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	var c domain.Campaign
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, notFound(err, errors.ErrCampaignNotFound, "failed to find campaign")
	}
	return &c, nil
}

func campaignWhere(f domain.CampaignFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.CountryCode != "" {
		add("country_code = $%d", strings.ToUpper(f.CountryCode))
	}
	if f.FundID != nil {
		add("fund_id = $%d", *f.FundID)
	}
	if f.OwnerID != nil {
		add("owner_id = $%d", *f.OwnerID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *CampaignRepository) List(ctx context.Context, f domain.CampaignFilter) ([]*domain.Campaign, error) {
	where, args := campaignWhere(f)
	page := f.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT %s FROM campaigns%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		campaignColumns, where, len(args)-1, len(args))

	campaigns := []*domain.Campaign{}
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, errors.Persistence(err, "failed to list campaigns")
	}
	return campaigns, nil
}

func (r *CampaignRepository) Count(ctx context.Context, f domain.CampaignFilter) (int, error) {
	where, args := campaignWhere(f)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM campaigns`+where, args...); err != nil {
		return 0, errors.Persistence(err, "failed to count campaigns")
	}
	return n, nil
}

// Update writes the editable fields. Monetary aggregates are never written here.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET
			title = $1, description = $2, category = $3, country_code = $4,
			goal_amount = $5, end_date = $6, banner_url = $7, updated_at = $8
		WHERE id = $9`,
		c.Title, c.Description, c.Category, c.CountryCode,
		c.GoalAmount, c.EndDate, c.BannerURL, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return errors.Persistence(err, "failed to update campaign")
	}
	ok, err := affected(res, "failed to update campaign")
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrCampaignNotFound
	}
	return nil
}

// UpdateStatus moves the campaign from -> to. It reports false when the
// campaign is no longer in from.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.CampaignStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET
			status = $1,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return false, errors.Persistence(err, "failed to update campaign status")
	}
	return affected(res, "failed to update campaign status")
}
