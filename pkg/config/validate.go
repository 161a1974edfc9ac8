// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"strings"
)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "REDIS_URL")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.CloudPayments.APISecret) == "" && strings.TrimSpace(c.YooKassa.APISecret) == "" {
		missing = append(missing, "CLOUDPAYMENTS_API_SECRET or YOOKASSA_SECRET_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if !c.Zakat.Nisab.IsPositive() {
		return fmt.Errorf("invalid configuration: ZAKAT_NISAB must be positive")
	}
	if !c.Zakat.Rate.IsPositive() {
		return fmt.Errorf("invalid configuration: ZAKAT_RATE must be positive")
	}

	return nil
}

// ValidateScheduler checks the subset the sweeper needs.
func (c *Config) ValidateScheduler() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("missing required configuration: DATABASE_URL")
	}
	if c.Intents.PendingTTL <= 0 {
		return fmt.Errorf("invalid configuration: INTENT_PENDING_TTL must be positive")
	}
	return nil
}
