package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is a subscription billing period.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Interval returns the billing period length. Unrecognized values are monthly.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// NextPaymentDate is from advanced by one billing period.
func (f Frequency) NextPaymentDate(from time.Time) time.Time {
	return from.Add(f.Interval())
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionActive:    {SubscriptionPaused, SubscriptionCancelled},
	SubscriptionPaused:    {SubscriptionActive, SubscriptionCancelled},
	SubscriptionCancelled: nil,
}

func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Subscription struct {
	ID              int64              `json:"id" db:"id"`
	UserID          uuid.UUID          `json:"user_id" db:"user_id"`
	FundID          *int64             `json:"fund_id,omitempty" db:"fund_id"`
	Plan            string             `json:"plan" db:"plan"`
	Amount          decimal.Decimal    `json:"amount" db:"amount"`
	Currency        Currency           `json:"currency" db:"currency"`
	Frequency       Frequency          `json:"frequency" db:"frequency"`
	PaymentMethod   PaymentMethod      `json:"payment_method" db:"payment_method"`
	Purpose         *string            `json:"purpose,omitempty" db:"purpose"`
	Status          SubscriptionStatus `json:"status" db:"status"`
	NextPaymentDate *time.Time         `json:"next_payment_date,omitempty" db:"next_payment_date"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}
