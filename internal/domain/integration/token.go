package integration

import (
	"errors"
	"time"
)

var ErrTokenNotFound = errors.New("integration: access token not found")

// AccessToken is a persisted supplier session
type AccessToken struct {
	SupplierID       string
	Token            string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	UpdatedAt        time.Time
}

// ValidAt reports whether the token is usable at now, keeping skew in reserve
func (t *AccessToken) ValidAt(now time.Time, skew time.Duration) bool {
	return t != nil && t.Token != "" && now.Add(skew).Before(t.ExpiresAt)
}

// RefreshableAt reports whether the refresh token can still mint a new token
func (t *AccessToken) RefreshableAt(now time.Time) bool {
	return t != nil && t.RefreshToken != "" && now.Before(t.RefreshExpiresAt)
}
