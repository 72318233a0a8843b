package integration

import (
	"strings"
	"time"
)

// Tier is the supplier account level; it governs request pacing
type Tier string

const (
	TierFree     Tier = "FREE"
	TierPlus     Tier = "PLUS"
	TierPrime    Tier = "PRIME"
	TierAdvanced Tier = "ADVANCED"
)

// TierLimits describes the pacing allowed for a tier
type TierLimits struct {
	// RequestsPerSecond is the ceiling for individual API calls
	RequestsPerSecond float64
	// BatchDelay separates consecutive items of a batch loop
	BatchDelay time.Duration
	// LoginsPer5Min bounds fresh logins in any five-minute window
	LoginsPer5Min int
}

var tierLimits = map[Tier]TierLimits{
	TierFree:     {RequestsPerSecond: 1, BatchDelay: 3000 * time.Millisecond, LoginsPer5Min: 1},
	TierPlus:     {RequestsPerSecond: 2, BatchDelay: 1500 * time.Millisecond, LoginsPer5Min: 2},
	TierPrime:    {RequestsPerSecond: 4, BatchDelay: 1000 * time.Millisecond, LoginsPer5Min: 3},
	TierAdvanced: {RequestsPerSecond: 6, BatchDelay: 500 * time.Millisecond, LoginsPer5Min: 5},
}

// ParseTier parses a tier name, defaulting to TierFree
func ParseTier(s string) Tier {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := tierLimits[t]; ok {
		return t
	}
	return TierFree
}

// IsValid reports whether the tier is known
func (t Tier) IsValid() bool {
	_, ok := tierLimits[t]
	return ok
}

// Limits returns the pacing limits for the tier
func (t Tier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// BatchDelay is shorthand for Limits().BatchDelay
func (t Tier) BatchDelay() time.Duration {
	return t.Limits().BatchDelay
}
