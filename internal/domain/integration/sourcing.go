package integration

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourcingStatus is the local state of a sourcing request
type SourcingStatus string

const (
	SourcingPending    SourcingStatus = "pending"
	SourcingProcessing SourcingStatus = "processing"
	SourcingFound      SourcingStatus = "found"
	SourcingFailed     SourcingStatus = "failed"
)

// IsTerminal reports whether the status can no longer change
func (s SourcingStatus) IsTerminal() bool {
	return s == SourcingFound || s == SourcingFailed
}

var (
	ErrSourcingNotFound          = errors.New("integration: sourcing request not found")
	ErrSourcingInvalidTransition = errors.New("integration: invalid sourcing status transition")
	ErrSourcingInvalidRequest    = errors.New("integration: sourcing request needs a product url or name")
)

// MapSupplierSourcingStatus translates a supplier sourcing status into the local vocabulary
func MapSupplierSourcingStatus(raw string) SourcingStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "FOUND", "COMPLETED":
		return SourcingFound
	case "FAILED", "FAIL", "REJECTED", "CLOSED":
		return SourcingFailed
	case "PROCESSING", "SOURCING", "IN_PROGRESS":
		return SourcingProcessing
	default:
		return SourcingPending
	}
}

// SourcingRequest mirrors a supplier sourcing request
type SourcingRequest struct {
	ID                uuid.UUID
	SupplierID        string
	SourcingID        string
	ProductURL        string
	ProductName       string
	Note              string
	Status            SourcingStatus
	ExternalProductID string
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSourcingRequest creates a pending sourcing request
func NewSourcingRequest(supplierID string, sub SourcingSubmission) (*SourcingRequest, error) {
	if strings.TrimSpace(sub.ProductURL) == "" && strings.TrimSpace(sub.ProductName) == "" {
		return nil, ErrSourcingInvalidRequest
	}
	now := time.Now()
	return &SourcingRequest{
		ID:          uuid.New(),
		SupplierID:  supplierID,
		ProductURL:  strings.TrimSpace(sub.ProductURL),
		ProductName: strings.TrimSpace(sub.ProductName),
		Note:        sub.Note,
		Status:      SourcingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TransitionTo moves the request forward. Terminal states are immutable;
// a transition to the current status is a no-op.
func (r *SourcingRequest) TransitionTo(status SourcingStatus) error {
	if r.Status == status {
		return nil
	}
	if r.Status.IsTerminal() {
		return ErrSourcingInvalidTransition
	}
	if r.Status == SourcingProcessing && status == SourcingPending {
		return ErrSourcingInvalidTransition
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

// Apply folds a supplier result into the request
func (r *SourcingRequest) Apply(res SourcingResult) error {
	if res.SourcingID != "" {
		r.SourcingID = res.SourcingID
	}
	next := MapSupplierSourcingStatus(res.Status)
	if next == SourcingPending && r.Status != SourcingPending {
		next = r.Status
	}
	if err := r.TransitionTo(next); err != nil {
		return err
	}
	if res.ExternalProductID != "" {
		r.ExternalProductID = res.ExternalProductID
	}
	if r.Status == SourcingFailed {
		r.FailureReason = res.FailureReason
	}
	return nil
}
