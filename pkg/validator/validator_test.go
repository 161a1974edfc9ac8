package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type donationInput struct {
	Amount        decimal.Decimal `validate:"gt=0,money"`
	Currency      string          `validate:"required,currency"`
	PaymentMethod string          `validate:"required,payment_method"`
	Country       string          `validate:"omitempty,country_code"`
}

func TestValidateStructured(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   donationInput
		invalid []string
	}{
		{
			name:  "valid",
			input: donationInput{Amount: decimal.RequireFromString("100.50"), Currency: "RUB", PaymentMethod: "cloudpayments", Country: "RU"},
		},
		{
			name:    "non positive amount",
			input:   donationInput{Amount: decimal.Zero, Currency: "RUB", PaymentMethod: "yookassa"},
			invalid: []string{"Amount"},
		},
		{
			name:    "sub-kopeck amount",
			input:   donationInput{Amount: decimal.RequireFromString("10.005"), Currency: "RUB", PaymentMethod: "yookassa"},
			invalid: []string{"Amount"},
		},
		{
			name:    "unknown enums",
			input:   donationInput{Amount: decimal.NewFromInt(5), Currency: "GBP", PaymentMethod: "paypal", Country: "rus"},
			invalid: []string{"Currency", "PaymentMethod", "Country"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateStructured(&tt.input)
			if len(tt.invalid) == 0 {
				assert.Nil(t, errs)
				return
			}
			for _, field := range tt.invalid {
				assert.Contains(t, errs, field)
			}
			assert.Len(t, errs, len(tt.invalid))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", Sanitize("  <b>hi</b> "))
}
