package catalogsync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Settings are the sync engine tunables
type Settings struct {
	SupplierID string
	// Margin is applied on top of supplier cost: price = cost * (1 + Margin)
	Margin decimal.Decimal
	// SimilarityThreshold is the exclusive lower bound for a fuzzy duplicate
	SimilarityThreshold float64
	// PriceTolerance bounds the price window for fuzzy candidates
	PriceTolerance decimal.Decimal
	// FastAckTimeout is how long Receive waits before acknowledging anyway
	FastAckTimeout time.Duration
	// BatchDelay separates upstream calls in serialized batch loops
	BatchDelay time.Duration
	// ClaimTTL bounds how long a message id stays claimed by one worker
	ClaimTTL time.Duration
}

// DefaultSettings returns the standard tunables
func DefaultSettings() Settings {
	return Settings{
		SupplierID:          "default",
		Margin:              decimal.NewFromFloat(0.30),
		SimilarityThreshold: 0.8,
		PriceTolerance:      decimal.NewFromFloat(0.01),
		FastAckTimeout:      2500 * time.Millisecond,
		BatchDelay:          3000 * time.Millisecond,
		ClaimTTL:            10 * time.Minute,
	}
}

// SellPrice applies the margin to a supplier cost, rounded to cents
func (s Settings) SellPrice(cost decimal.Decimal) decimal.Decimal {
	return cost.Mul(decimal.NewFromInt(1).Add(s.Margin)).Round(2)
}

// CacheInvalidator drops cached supplier data for a product
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, externalProductID string)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateProduct(context.Context, string) {}

// pause waits d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
