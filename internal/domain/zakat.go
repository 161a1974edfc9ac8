package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ZakatAssets are the seven zakatable asset categories.
type ZakatAssets struct {
	CashAtHome          decimal.Decimal `json:"cash_at_home" db:"cash_at_home"`
	BankAccounts        decimal.Decimal `json:"bank_accounts" db:"bank_accounts"`
	SharesValue         decimal.Decimal `json:"shares_value" db:"shares_value"`
	GoodsProfit         decimal.Decimal `json:"goods_profit" db:"goods_profit"`
	GoldSilverValue     decimal.Decimal `json:"gold_silver_value" db:"gold_silver_value"`
	PropertyInvestments decimal.Decimal `json:"property_investments" db:"property_investments"`
	OtherIncome         decimal.Decimal `json:"other_income" db:"other_income"`
}

// Total sums the categories.
func (a ZakatAssets) Total() decimal.Decimal {
	return decimal.Sum(a.CashAtHome, a.BankAccounts, a.SharesValue, a.GoodsProfit,
		a.GoldSilverValue, a.PropertyInvestments, a.OtherIncome)
}

type ZakatLiabilities struct {
	Debts    decimal.Decimal `json:"debts" db:"debts"`
	Expenses decimal.Decimal `json:"expenses" db:"expenses"`
}

func (l ZakatLiabilities) Total() decimal.Decimal {
	return l.Debts.Add(l.Expenses)
}

// ZakatCalculation is the latest calculation for a user. One row per user.
type ZakatCalculation struct {
	ID     int64     `json:"id" db:"id"`
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	ZakatAssets
	ZakatLiabilities
	TotalAssets      decimal.Decimal `json:"total_assets" db:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities" db:"total_liabilities"`
	ZakatableAmount  decimal.Decimal `json:"zakatable_amount" db:"zakatable_amount"`
	NisabAmount      decimal.Decimal `json:"nisab_amount" db:"nisab_amount"`
	ZakatAmount      decimal.Decimal `json:"zakat_amount" db:"zakat_amount"`
	IsPaid           bool            `json:"is_paid" db:"is_paid"`
	PaymentID        *string         `json:"payment_id,omitempty" db:"payment_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Due reports whether an unpaid positive obligation exists.
func (z *ZakatCalculation) Due() bool {
	return !z.IsPaid && z.ZakatAmount.IsPositive()
}
