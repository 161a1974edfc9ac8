package postgres

import (
	"context"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const zakatColumns = `
	id, user_id, cash_at_home, bank_accounts, shares_value, goods_profit,
	gold_silver_value, property_investments, other_income, debts, expenses,
	total_assets, total_liabilities, zakatable_amount, nisab_amount,
	zakat_amount, is_paid, payment_id, created_at, updated_at`

type ZakatRepository struct {
	db *sqlx.DB
}

func NewZakatRepository(db *sqlx.DB) *ZakatRepository {
	return &ZakatRepository{db: db}
}

// Upsert stores the user's calculation, replacing the inputs and totals of
// any previous one. is_paid and payment_id keep their stored values.
func (r *ZakatRepository) Upsert(ctx context.Context, calc *domain.ZakatCalculation) error {
	query := `
		INSERT INTO zakat_calculations (
			user_id, cash_at_home, bank_accounts, shares_value, goods_profit,
			gold_silver_value, property_investments, other_income, debts, expenses,
			total_assets, total_liabilities, zakatable_amount, nisab_amount,
			zakat_amount, is_paid, payment_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, FALSE, NULL, $16, $16
		)
		ON CONFLICT (user_id) DO UPDATE SET
			cash_at_home = EXCLUDED.cash_at_home,
			bank_accounts = EXCLUDED.bank_accounts,
			shares_value = EXCLUDED.shares_value,
			goods_profit = EXCLUDED.goods_profit,
			gold_silver_value = EXCLUDED.gold_silver_value,
			property_investments = EXCLUDED.property_investments,
			other_income = EXCLUDED.other_income,
			debts = EXCLUDED.debts,
			expenses = EXCLUDED.expenses,
			total_assets = EXCLUDED.total_assets,
			total_liabilities = EXCLUDED.total_liabilities,
			zakatable_amount = EXCLUDED.zakatable_amount,
			nisab_amount = EXCLUDED.nisab_amount,
			zakat_amount = EXCLUDED.zakat_amount,
			updated_at = EXCLUDED.updated_at
		RETURNING id, is_paid, payment_id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		calc.UserID, calc.CashAtHome, calc.BankAccounts, calc.SharesValue, calc.GoodsProfit,
		calc.GoldSilverValue, calc.PropertyInvestments, calc.OtherIncome, calc.Debts, calc.Expenses,
		calc.TotalAssets, calc.TotalLiabilities, calc.ZakatableAmount, calc.NisabAmount,
		calc.ZakatAmount, calc.UpdatedAt,
	).Scan(&calc.ID, &calc.IsPaid, &calc.PaymentID, &calc.CreatedAt, &calc.UpdatedAt)
	if err != nil {
		return errors.Persistence(err, "failed to store zakat calculation")
	}
	return nil
}

func (r *ZakatRepository) FindByID(ctx context.Context, id int64) (*domain.ZakatCalculation, error) {
	var calc domain.ZakatCalculation
	query := `SELECT ` + zakatColumns + ` FROM zakat_calculations WHERE id = $1`
	if err := r.db.GetContext(ctx, &calc, query, id); err != nil {
		return nil, notFound(err, errors.ErrZakatNotFound, "failed to find zakat calculation")
	}
	return &calc, nil
}

func (r *ZakatRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.ZakatCalculation, error) {
	var calc domain.ZakatCalculation
	query := `SELECT ` + zakatColumns + ` FROM zakat_calculations WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &calc, query, userID); err != nil {
		return nil, notFound(err, errors.ErrZakatNotFound, "failed to find zakat calculation")
	}
	return &calc, nil
}

func (r *ZakatRepository) MarkPaid(ctx context.Context, id int64, paymentRef string) (bool, error) {
	return markZakatPaid(ctx, r.db, id, paymentRef)
}

// markZakatPaid flips is_paid only on an unpaid calculation with something due.
func markZakatPaid(ctx context.Context, db sqlx.ExecerContext, id int64, paymentRef string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE zakat_calculations
		SET is_paid = TRUE, payment_id = $1, updated_at = NOW()
		WHERE id = $2 AND is_paid = FALSE AND zakat_amount > 0`,
		paymentRef, id,
	)
	if err != nil {
		return false, errors.Persistence(err, "failed to mark zakat paid")
	}
	return affected(res, "failed to mark zakat paid")
}
