package domain

import "github.com/google/uuid"

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to 1..100 items, defaulting to 20.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type FundFilter struct {
	CountryCode string
	Purpose     string
	OnlyActive  bool
	Page
}

type CampaignFilter struct {
	Status      CampaignStatus
	Category    string
	CountryCode string
	FundID      *int64
	OwnerID     *uuid.UUID
	Page
}

type ApplicationFilter struct {
	Status ApplicationStatus
	Page
}
