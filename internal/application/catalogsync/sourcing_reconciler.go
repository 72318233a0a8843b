package catalogsync

import (
	"context"
	"fmt"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const sourcingQueryBatch = 50

// ReconcileResult reports a sourcing poll
type ReconcileResult struct {
	Checked int      `json:"checked"`
	Changed int      `json:"changed"`
	Errors  []string `json:"errors,omitempty"`
}

// SourcingReconciler submits sourcing requests and polls their progress
type SourcingReconciler struct {
	gateway  integration.SourcingGateway
	requests integration.SourcingRequestRepository
	products catalog.ProductRepository
	settings Settings
	logger   *zap.Logger
	metrics  *telemetry.SyncMetrics
}

// NewSourcingReconciler creates a SourcingReconciler
func NewSourcingReconciler(
	gateway integration.SourcingGateway,
	requests integration.SourcingRequestRepository,
	products catalog.ProductRepository,
	settings Settings,
	logger *zap.Logger,
) *SourcingReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourcingReconciler{
		gateway:  gateway,
		requests: requests,
		products: products,
		settings: settings,
		logger:   logger,
	}
}

// SetMetrics attaches a metrics collector
func (s *SourcingReconciler) SetMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// Submit creates a sourcing request at the supplier and tracks it locally
func (s *SourcingReconciler) Submit(ctx context.Context, sub integration.SourcingSubmission) (*integration.SourcingRequest, error) {
	req, err := integration.NewSourcingRequest(s.settings.SupplierID, sub)
	if err != nil {
		return nil, err
	}
	res, err := s.gateway.CreateSourcing(ctx, sub)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(*res); err != nil {
		return nil, err
	}
	if err := s.requests.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Reconcile polls every open sourcing request in batches, serialized with the
// tier batch delay, and records status changes
func (s *SourcingReconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	open, err := s.requests.FindByStatuses(ctx, integration.SourcingPending, integration.SourcingProcessing)
	if err != nil {
		return nil, err
	}
	byID := lo.SliceToMap(
		lo.Filter(open, func(r integration.SourcingRequest, _ int) bool { return r.SourcingID != "" }),
		func(r integration.SourcingRequest) (string, integration.SourcingRequest) { return r.SourcingID, r },
	)

	result := &ReconcileResult{}
	defer func() {
		recordItems(ctx, s.metrics, telemetry.SyncOperationSourcing, map[string]int{
			telemetry.SyncOutcomeUpdated: result.Changed,
			telemetry.SyncOutcomeSkipped: result.Checked - result.Changed,
			telemetry.SyncOutcomeFailed:  len(result.Errors),
		})
	}()
	for i, batch := range lo.Chunk(lo.Keys(byID), sourcingQueryBatch) {
		if i > 0 {
			if err := pause(ctx, s.settings.BatchDelay); err != nil {
				return result, err
			}
		}
		found, err := s.gateway.QuerySourcing(ctx, batch)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		for _, res := range found {
			req, ok := byID[res.SourcingID]
			if !ok {
				continue
			}
			result.Checked++
			before := req.Status
			if err := req.Apply(res); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", res.SourcingID, err))
				continue
			}
			if req.Status == before {
				continue
			}
			if err := s.requests.Save(ctx, &req); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", res.SourcingID, err))
				continue
			}
			result.Changed++
			s.attach(ctx, &req)
		}
	}
	return result, nil
}

// attach links a found product to the sourcing request; best-effort
func (s *SourcingReconciler) attach(ctx context.Context, req *integration.SourcingRequest) {
	if req.Status != integration.SourcingFound || req.ExternalProductID == "" {
		return
	}
	p, err := s.products.FindByExternalID(ctx, req.SupplierID, req.ExternalProductID)
	if err != nil {
		return
	}
	p.AttachSourcing(req.SourcingID, string(req.Status))
	if err := s.products.Update(ctx, p); err != nil {
		s.logger.Warn("failed to attach sourcing to product", zap.String("sourcing_id", req.SourcingID), zap.Error(err))
	}
}

// Get returns a tracked sourcing request by supplier sourcing id
func (s *SourcingReconciler) Get(ctx context.Context, sourcingID string) (*integration.SourcingRequest, error) {
	return s.requests.FindBySourcingID(ctx, s.settings.SupplierID, sourcingID)
}
