package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignPending   CampaignStatus = "pending"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignPending:   {CampaignActive, CampaignCancelled},
	CampaignActive:    {CampaignCompleted, CampaignCancelled},
	CampaignCompleted: nil,
	CampaignCancelled: nil,
}

func (s CampaignStatus) Valid() bool {
	_, ok := campaignTransitions[s]
	return ok
}

func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Campaign is a time-boxed crowdfunding goal.
type Campaign struct {
	ID                int64           `json:"id" db:"id"`
	OwnerID           uuid.UUID       `json:"owner_id" db:"owner_id"`
	FundID            *int64          `json:"fund_id,omitempty" db:"fund_id"`
	Title             string          `json:"title" db:"title"`
	Description       string          `json:"description" db:"description"`
	Category          string          `json:"category" db:"category"`
	CountryCode       string          `json:"country_code" db:"country_code"`
	GoalAmount        decimal.Decimal `json:"goal_amount" db:"goal_amount"`
	CollectedAmount   decimal.Decimal `json:"collected_amount" db:"collected_amount"`
	ParticipantsCount int             `json:"participants_count" db:"participants_count"`
	Status            CampaignStatus  `json:"status" db:"status"`
	EndDate           *time.Time      `json:"end_date,omitempty" db:"end_date"`
	BannerURL         *string         `json:"banner_url,omitempty" db:"banner_url"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

func (c *Campaign) AcceptsDonations() bool {
	return c.Status == CampaignActive
}

// GoalReached reports whether collected has met the goal.
func (c *Campaign) GoalReached() bool {
	return c.CollectedAmount.GreaterThanOrEqual(c.GoalAmount)
}

// Progress is collected/goal as a percentage rounded to 2 places, capped at 100.
func (c *Campaign) Progress() decimal.Decimal {
	if !c.GoalAmount.IsPositive() {
		return decimal.Zero
	}
	pct := c.CollectedAmount.Div(c.GoalAmount).Mul(decimal.NewFromInt(100)).Round(2)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct
}
