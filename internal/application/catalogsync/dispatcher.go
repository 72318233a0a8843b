package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Ack is what the ingress boundary tells the sender. It is always positive;
// Result is set only when processing finished before the fast-ack deadline.
type Ack struct {
	MessageID string
	Ping      bool
	Completed bool
	Result    *Result
}

// Result is the terminal outcome of one notification
type Result struct {
	MessageID string                            `json:"messageId"`
	Type      integration.NotificationType      `json:"type"`
	Status    integration.NotificationLogStatus `json:"status"`
	Summary   string                            `json:"summary,omitempty"`
	Error     string                            `json:"error,omitempty"`
	Duplicate bool                              `json:"duplicate,omitempty"`
	Latency   time.Duration                     `json:"latency"`
}

type handlerFunc func(ctx context.Context, n *integration.Notification) (string, error)

// DispatcherDeps groups the Dispatcher collaborators
type DispatcherDeps struct {
	Resolver     *IdentityResolver
	Materializer *Materializer
	Products     catalog.ProductRepository
	Variants     catalog.VariantRepository
	Entries      integration.CatalogEntryRepository
	Mappings     catalog.CategoryMappingRepository
	Notices      catalog.ChangeNoticeRepository
	Logs         integration.NotificationLogRepository
	Orders       integration.OrderMappingRepository
	Sourcing     integration.SourcingRequestRepository
	Claims       shared.ClaimStore
	// Stock is optional; when set, newly created products get their stock enriched
	Stock integration.StockGateway
	Cache CacheInvalidator
}

// Dispatcher validates, logs, routes and applies supplier change notifications
type Dispatcher struct {
	deps     DispatcherDeps
	settings Settings
	logger   *zap.Logger
	handlers map[integration.NotificationType]handlerFunc
	metrics  *telemetry.SyncMetrics
	now      func() time.Time

	mu       sync.Mutex
	closing  bool
	wg       sync.WaitGroup
	inflight atomic.Int64
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(deps DispatcherDeps, settings Settings, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = noopInvalidator{}
	}
	d := &Dispatcher{
		deps:     deps,
		settings: settings,
		logger:   log,
		now:      time.Now,
	}
	d.handlers = map[integration.NotificationType]handlerFunc{
		integration.NotificationProduct:        d.handleProduct,
		integration.NotificationVariant:        d.handleVariant,
		integration.NotificationStock:          d.handleStock,
		integration.NotificationOrder:          d.handleOrder,
		integration.NotificationOrderSplit:     d.handleOrderSplit,
		integration.NotificationSourcingCreate: d.handleSourcing,
	}
	return d
}

// SetMetrics attaches a metrics collector
func (d *Dispatcher) SetMetrics(m *telemetry.SyncMetrics) {
	d.metrics = m
}

// ---------------------------------------------------------------------------
// Ingress
// ---------------------------------------------------------------------------

// Receive is the ingress boundary. Pings are acknowledged without being
// persisted. Anything else is processed by a detached task that outlives the
// request; if it has not finished within FastAckTimeout the sender is
// acknowledged anyway and the task records its own result in the log.
func (d *Dispatcher) Receive(ctx context.Context, body []byte) Ack {
	n := integration.ParseNotification(body)
	if n.IsPing() {
		return Ack{Ping: true, Completed: true}
	}

	taskCtx := logger.WithMessageID(context.WithoutCancel(ctx), n.MessageID)
	if !d.track() {
		res := d.Dispatch(taskCtx, n, body)
		return Ack{MessageID: n.MessageID, Completed: true, Result: &res}
	}

	done := make(chan Result, 1)
	go func() {
		defer d.wg.Done()
		defer d.inflight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification task panicked",
					zap.String("message_id", n.MessageID), zap.Any("panic", r))
			}
		}()
		done <- d.Dispatch(taskCtx, n, body)
	}()

	timer := time.NewTimer(d.settings.FastAckTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return Ack{MessageID: n.MessageID, Completed: true, Result: &res}
	case <-timer.C:
		d.logger.Info("fast-ack deadline reached, continuing in background",
			zap.String("message_id", n.MessageID),
			zap.String("type", string(n.Type)),
		)
	case <-ctx.Done():
	}
	return Ack{MessageID: n.MessageID}
}

// track registers a detached task unless shutdown has begun. The check and
// the Add share a lock with Shutdown so no Add races a running Wait.
func (d *Dispatcher) track() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return false
	}
	d.wg.Add(1)
	d.inflight.Add(1)
	return true
}

// InFlight returns the number of detached tasks still running
func (d *Dispatcher) InFlight() int64 {
	return d.inflight.Load()
}

// Shutdown stops detaching new tasks and waits for running ones
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification tasks still running: %d: %w", d.InFlight(), ctx.Err())
	}
}

// ---------------------------------------------------------------------------
// Processing
// ---------------------------------------------------------------------------

// Dispatch logs the notification as RECEIVED, routes it to its handler and
// persists the terminal status. An already processed message id is reported
// as a duplicate without running again.
func (d *Dispatcher) Dispatch(ctx context.Context, n *integration.Notification, raw []byte) Result {
	ctx, span := telemetry.StartSpan(ctx, "dispatcher.dispatch",
		telemetry.WithSpanKind(trace.SpanKindConsumer),
		telemetry.WithAttribute(telemetry.SpanAttrMessageID, n.MessageID),
		telemetry.WithAttribute(telemetry.SpanAttrNotificationType, string(n.Type)),
	)
	defer span.End()

	start := d.now()
	log := logger.Enrich(ctx, d.logger).With(zap.String("type", string(n.Type)))
	res := Result{MessageID: n.MessageID, Type: n.Type}
	defer func() {
		if d.metrics != nil {
			d.metrics.RecordNotification(ctx, string(res.Type), string(res.Status), res.Latency, res.Duplicate)
		}
	}()

	entry := integration.NewNotificationLog(n, raw)
	created, err := d.deps.Logs.Create(ctx, entry)
	if err != nil {
		log.Error("failed to log notification", zap.Error(err))
	} else if !created {
		prior, err := d.deps.Logs.FindByMessageID(ctx, n.MessageID)
		if err == nil && prior.Status == integration.NotificationLogProcessed {
			res.Status = prior.Status
			res.Summary = prior.Result
			res.Duplicate = true
			return res
		}
		if err == nil {
			entry = prior
		}
	}

	claimKey := "notification:" + n.MessageID
	claimed, err := d.deps.Claims.Claim(ctx, claimKey, d.settings.ClaimTTL)
	if err != nil {
		log.Warn("claim store unavailable, processing unclaimed", zap.Error(err))
		claimed = true
	}
	if !claimed {
		res.Status = integration.NotificationLogReceived
		res.Summary = "already being processed"
		res.Duplicate = true
		return res
	}
	defer func() {
		if err := d.deps.Claims.Release(ctx, claimKey); err != nil {
			log.Warn("failed to release claim", zap.Error(err))
		}
	}()

	summary, handleErr := d.route(ctx, n)
	res.Latency = d.now().Sub(start)
	if handleErr != nil {
		entry.MarkFailed(handleErr.Error(), res.Latency)
		telemetry.RecordError(span, handleErr)
		res.Status = integration.NotificationLogError
		res.Error = handleErr.Error()
		log.Warn("notification failed", zap.Error(handleErr), zap.Duration("latency", res.Latency))
	} else {
		entry.MarkProcessed(summary, res.Latency)
		res.Status = integration.NotificationLogProcessed
		res.Summary = summary
		log.Info("notification processed", zap.String("result", summary), zap.Duration("latency", res.Latency))
	}

	if err := d.deps.Logs.Save(ctx, entry); err != nil {
		log.Error("failed to persist notification result", zap.Error(err))
	}
	return res
}

func (d *Dispatcher) route(ctx context.Context, n *integration.Notification) (summary string, err error) {
	h, ok := d.handlers[n.Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", integration.ErrNotificationUnsupported, n.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, n)
}

// FindLog returns the log entry for a message id
func (d *Dispatcher) FindLog(ctx context.Context, messageID string) (*integration.NotificationLog, error) {
	return d.deps.Logs.FindByMessageID(ctx, messageID)
}

// RecentLogs lists recent log entries, optionally filtered by status
func (d *Dispatcher) RecentLogs(ctx context.Context, status integration.NotificationLogStatus, limit int) ([]integration.NotificationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return d.deps.Logs.FindRecent(ctx, status, limit)
}

// emitNotice records a user-facing change notice; failures are logged only
func (d *Dispatcher) emitNotice(ctx context.Context, notice *catalog.ChangeNotice) {
	if d.deps.Notices == nil {
		return
	}
	if err := d.deps.Notices.Create(ctx, notice); err != nil {
		logger.Enrich(ctx, d.logger).Warn("failed to store change notice", zap.Error(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrProductNotFound) ||
		errors.Is(err, catalog.ErrVariantNotFound) ||
		errors.Is(err, integration.ErrCatalogEntryNotFound) ||
		errors.Is(err, integration.ErrOrderMappingNotFound) ||
		errors.Is(err, integration.ErrSourcingNotFound) ||
		errors.Is(err, catalog.ErrMappingNotFound)
}
