package catalogsync

import (
	"context"

	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
)

// recordItems forwards counts to m when metrics are attached
func recordItems(ctx context.Context, m *telemetry.SyncMetrics, operation string, counts map[string]int) {
	if m == nil {
		return
	}
	for outcome, n := range counts {
		m.RecordSyncItems(ctx, operation, outcome, n)
	}
}
