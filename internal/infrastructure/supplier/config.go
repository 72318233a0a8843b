package supplier

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// Config holds the supplier API account and client tunables
type Config struct {
	SupplierID string
	BaseURL    string
	Email      string
	APIKey     string
	Tier       integration.Tier
	Timeout    time.Duration
	// TokenSkew is subtracted from token expiry before a token is considered stale
	TokenSkew time.Duration
	// StockRetryAttempts is the total number of stock fetch attempts
	StockRetryAttempts int
	// StockRetryStep is the linear backoff step: step, 2*step, ...
	StockRetryStep time.Duration
}

var (
	ErrConfigMissingBaseURL = errors.New("supplier: base URL is required")
	ErrConfigInvalidBaseURL = errors.New("supplier: base URL is invalid")
	ErrConfigMissingEmail   = errors.New("supplier: account email is required")
	ErrConfigMissingAPIKey  = errors.New("supplier: API key is required")
)

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Email == "" {
		return ErrConfigMissingEmail
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.SupplierID == "" {
		c.SupplierID = "default"
	}
	if !c.Tier.IsValid() {
		c.Tier = integration.TierFree
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.TokenSkew <= 0 {
		c.TokenSkew = 5 * time.Minute
	}
	if c.StockRetryAttempts <= 0 {
		c.StockRetryAttempts = 3
	}
	if c.StockRetryStep <= 0 {
		c.StockRetryStep = 2 * time.Second
	}
	return nil
}
