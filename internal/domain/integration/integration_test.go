package integration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSupplierOrderStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want OrderStatus
	}{
		{"CREATED", OrderStatusPending},
		{"unshipped", OrderStatusProcessing},
		{"SHIPPED", OrderStatusShipped},
		{"DELIVERED", OrderStatusDelivered},
		{"CANCELLED", OrderStatusCancelled},
		{"SOMETHING_NEW", OrderStatusPending},
		{"", OrderStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapSupplierOrderStatus(tt.raw))
		})
	}
}

func TestOrderMapping_ApplySupplierStatus(t *testing.T) {
	m, err := NewOrderMapping("sup", "L-1", "SO-1")
	require.NoError(t, err)

	m.ApplySupplierStatus("SHIPPED", "TRK1", "YunExpress")
	assert.Equal(t, OrderStatusShipped, m.Status)
	assert.Equal(t, "TRK1", m.TrackingNumber)

	m.ApplySupplierStatus("DELIVERED", "", "")
	assert.Equal(t, OrderStatusDelivered, m.Status)
	assert.Equal(t, "TRK1", m.TrackingNumber, "empty tracking keeps stored value")

	_, err = NewOrderMapping("sup", "L-1", " ")
	assert.ErrorIs(t, err, ErrOrderMappingInvalid)
}

func TestSourcingRequest_Transitions(t *testing.T) {
	r, err := NewSourcingRequest("sup", SourcingSubmission{ProductName: "Lamp"})
	require.NoError(t, err)
	assert.Equal(t, SourcingPending, r.Status)

	require.NoError(t, r.TransitionTo(SourcingProcessing))
	assert.ErrorIs(t, r.TransitionTo(SourcingPending), ErrSourcingInvalidTransition)
	require.NoError(t, r.TransitionTo(SourcingFound))
	assert.ErrorIs(t, r.TransitionTo(SourcingFailed), ErrSourcingInvalidTransition)
	assert.NoError(t, r.TransitionTo(SourcingFound), "same status is a no-op")

	_, err = NewSourcingRequest("sup", SourcingSubmission{})
	assert.ErrorIs(t, err, ErrSourcingInvalidRequest)
}

func TestSourcingRequest_Apply(t *testing.T) {
	r, err := NewSourcingRequest("sup", SourcingSubmission{ProductURL: "https://example.com/p"})
	require.NoError(t, err)
	require.NoError(t, r.TransitionTo(SourcingProcessing))

	require.NoError(t, r.Apply(SourcingResult{SourcingID: "S1", Status: "unknown"}))
	assert.Equal(t, SourcingProcessing, r.Status, "unknown status does not move backwards")

	require.NoError(t, r.Apply(SourcingResult{Status: "FAILED", FailureReason: "no match"}))
	assert.Equal(t, SourcingFailed, r.Status)
	assert.Equal(t, "no match", r.FailureReason)
	assert.Equal(t, "S1", r.SourcingID)
}

func TestCatalogEntry_LenientBlobs(t *testing.T) {
	e, err := NewCatalogEntryFromDetail("sup", &ProductDetail{
		ExternalID: "P1",
		Name:       "Mug",
		Price:      decimal.RequireFromString("3.00"),
		Variants:   []VariantDetail{{ExternalID: "V1", Name: "Blue"}},
		Tags:       []string{"kitchen"},
	})
	require.NoError(t, err)

	vs := e.Variants()
	require.Len(t, vs, 1)
	assert.Equal(t, "P1", vs[0].ExternalProductID)
	assert.Equal(t, []string{"kitchen"}, e.Tags())

	e.VariantsJSON = "{broken"
	e.ReviewsJSON = "[1,"
	assert.Nil(t, e.Variants(), "malformed blob reads as absent")
	assert.Nil(t, e.Reviews())

	_, err = NewCatalogEntryFromDetail("sup", &ProductDetail{})
	assert.ErrorIs(t, err, ErrCatalogEntryMissingProduct)
}

func TestCatalogEntry_Select(t *testing.T) {
	e, err := NewCatalogEntryFromSummary("sup", ProductSummary{ExternalID: "P1", Name: "Mug"})
	require.NoError(t, err)

	require.NoError(t, e.Select())
	assert.ErrorIs(t, e.Select(), ErrCatalogEntryInvalidStatus)
	e.MarkImported()
	assert.True(t, e.IsImported())
}

func TestTier_Limits(t *testing.T) {
	assert.Equal(t, TierPrime, ParseTier("prime"))
	assert.Equal(t, TierFree, ParseTier("platinum"))

	assert.Equal(t, 3000*time.Millisecond, TierFree.BatchDelay())
	assert.Equal(t, 500*time.Millisecond, TierAdvanced.BatchDelay())
	assert.Greater(t, TierAdvanced.Limits().RequestsPerSecond, TierFree.Limits().RequestsPerSecond)
}

func TestAccessToken_Validity(t *testing.T) {
	now := time.Now()
	tok := &AccessToken{Token: "t", ExpiresAt: now.Add(10 * time.Minute), RefreshToken: "r", RefreshExpiresAt: now.Add(time.Hour)}

	assert.True(t, tok.ValidAt(now, 5*time.Minute))
	assert.False(t, tok.ValidAt(now.Add(6*time.Minute), 5*time.Minute))
	assert.True(t, tok.RefreshableAt(now))

	var missing *AccessToken
	assert.False(t, missing.ValidAt(now, 0))
}

func TestNotificationLog_Lifecycle(t *testing.T) {
	n := ParseNotification([]byte(`{"messageId":"m1","type":"ORDER","params":{}}`))
	l := NewNotificationLog(n, []byte("raw"))
	assert.Equal(t, NotificationLogReceived, l.Status)
	assert.False(t, l.Status.IsTerminal())

	l.MarkFailed("boom", 1500*time.Millisecond)
	assert.Equal(t, NotificationLogError, l.Status)
	assert.Equal(t, int64(1500), l.LatencyMs)
	assert.NotNil(t, l.ProcessedAt)
}
