// Package zakat computes annual zakat obligations and stores them per user.
package zakat

import (
	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/shopspring/decimal"
)

// DefaultNisab is the threshold in RUB used when none is configured.
var DefaultNisab = decimal.NewFromInt(952389)

// DefaultRate is 2.5%.
var DefaultRate = decimal.RequireFromString("0.025")

// Result holds the derived totals of one calculation.
type Result struct {
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	ZakatableAmount  decimal.Decimal `json:"zakatable_amount"`
	NisabAmount      decimal.Decimal `json:"nisab_amount"`
	ZakatAmount      decimal.Decimal `json:"zakat_amount"`
	IsPayable        bool            `json:"is_payable"`
}

// Calculator is pure; it holds only the nisab and rate.
type Calculator struct {
	nisab decimal.Decimal
	rate  decimal.Decimal
}

func NewCalculator(nisab, rate decimal.Decimal) *Calculator {
	if !nisab.IsPositive() {
		nisab = DefaultNisab
	}
	if !rate.IsPositive() {
		rate = DefaultRate
	}
	return &Calculator{nisab: nisab, rate: rate}
}

func (c *Calculator) Nisab() decimal.Decimal { return c.nisab }

func (c *Calculator) Rate() decimal.Decimal { return c.rate }

// Calculate derives the zakat due. Zakatable wealth may be negative; zakat
// is owed only when it strictly exceeds the nisab.
func (c *Calculator) Calculate(assets domain.ZakatAssets, liabilities domain.ZakatLiabilities) (Result, error) {
	assets = roundAssets(assets)
	liabilities = domain.ZakatLiabilities{
		Debts:    liabilities.Debts.Round(2),
		Expenses: liabilities.Expenses.Round(2),
	}

	for _, v := range []decimal.Decimal{
		assets.CashAtHome, assets.BankAccounts, assets.SharesValue, assets.GoodsProfit,
		assets.GoldSilverValue, assets.PropertyInvestments, assets.OtherIncome,
		liabilities.Debts, liabilities.Expenses,
	} {
		if v.IsNegative() {
			return Result{}, errors.Validation("asset and liability values must not be negative")
		}
	}

	res := Result{
		TotalAssets:      assets.Total(),
		TotalLiabilities: liabilities.Total(),
		NisabAmount:      c.nisab,
		ZakatAmount:      decimal.Zero,
	}
	res.ZakatableAmount = res.TotalAssets.Sub(res.TotalLiabilities)

	if res.ZakatableAmount.GreaterThan(c.nisab) {
		res.ZakatAmount = res.ZakatableAmount.Mul(c.rate).Round(2)
		res.IsPayable = true
	}

	return res, nil
}

func roundAssets(a domain.ZakatAssets) domain.ZakatAssets {
	return domain.ZakatAssets{
		CashAtHome:          a.CashAtHome.Round(2),
		BankAccounts:        a.BankAccounts.Round(2),
		SharesValue:         a.SharesValue.Round(2),
		GoodsProfit:         a.GoodsProfit.Round(2),
		GoldSilverValue:     a.GoldSilverValue.Round(2),
		PropertyInvestments: a.PropertyInvestments.Round(2),
		OtherIncome:         a.OtherIncome.Round(2),
	}
}
