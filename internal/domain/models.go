// Package domain holds the donation platform's entities and their state rules.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Currency represents a supported ISO 4217 code.
type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

func (c Currency) Valid() bool {
	switch c {
	case RUB, USD, EUR:
		return true
	}
	return false
}

// PaymentMethod identifies the payment provider that collects the money.
type PaymentMethod string

const (
	MethodCloudPayments PaymentMethod = "cloudpayments"
	MethodYooKassa      PaymentMethod = "yookassa"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCloudPayments, MethodYooKassa:
		return true
	}
	return false
}

type UserType string

const (
	UserTypeDonor UserType = "donor"
	UserTypeAdmin UserType = "admin"
)

type User struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	Username   *string   `json:"username,omitempty" db:"username"`
	FirstName  *string   `json:"first_name,omitempty" db:"first_name"`
	LastName   *string   `json:"last_name,omitempty" db:"last_name"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	Email      *string   `json:"email,omitempty" db:"email"`
	Locale     string    `json:"locale" db:"locale"`
	Country    *string   `json:"country_code,omitempty" db:"country_code"`
	Madhab     *string   `json:"madhab,omitempty" db:"madhab"`
	UserType   UserType  `json:"user_type" db:"user_type"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Fund is a charitable organization that receives donations directly.
type Fund struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description *string        `json:"description,omitempty" db:"description"`
	CountryCode string         `json:"country_code" db:"country_code"`
	Purposes    pq.StringArray `json:"purposes" db:"purposes"`
	Website     *string        `json:"website,omitempty" db:"website"`
	LogoURL     *string        `json:"logo_url,omitempty" db:"logo_url"`
	Verified    bool           `json:"verified" db:"verified"`
	Active      bool           `json:"active" db:"active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// CanTransitionTo reports whether a review may move the application to next.
// Decisions are final.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return s == ApplicationPending && (next == ApplicationApproved || next == ApplicationRejected)
}

type PartnerApplication struct {
	ID           int64             `json:"id" db:"id"`
	Organization string            `json:"organization_name" db:"organization_name"`
	ContactName  string            `json:"contact_name" db:"contact_name"`
	Email        string            `json:"email" db:"email"`
	Phone        *string           `json:"phone,omitempty" db:"phone"`
	CountryCode  string            `json:"country_code" db:"country_code"`
	Website      *string           `json:"website,omitempty" db:"website"`
	Description  string            `json:"description" db:"description"`
	Status       ApplicationStatus `json:"status" db:"status"`
	ReviewedBy   *uuid.UUID        `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNotes  *string           `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}
