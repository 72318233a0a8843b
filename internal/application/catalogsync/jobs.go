package catalogsync

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
)

// Background job names
const (
	JobSourcingReconcile = "sourcing_reconcile"
	JobMappingSync       = "mapping_sync"
)

// JobIntervals sets how often each background job runs; zero disables a job
type JobIntervals struct {
	SourcingReconcile time.Duration
	MappingSync       time.Duration
}

// Jobs builds the scheduler jobs for the periodic parts of the sync engine.
// Either service may be nil, in which case its job is left out.
func Jobs(reconciler *SourcingReconciler, materializer *Materializer, intervals JobIntervals) []scheduler.Job {
	var jobs []scheduler.Job
	if reconciler != nil && intervals.SourcingReconcile > 0 {
		jobs = append(jobs, scheduler.Job{
			Name:     JobSourcingReconcile,
			Interval: intervals.SourcingReconcile,
			Retries:  2,
			Run: func(ctx context.Context) (string, error) {
				res, err := reconciler.Reconcile(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("checked=%d changed=%d errors=%d", res.Checked, res.Changed, len(res.Errors)), nil
			},
		})
	}
	if materializer != nil && intervals.MappingSync > 0 {
		jobs = append(jobs, scheduler.Job{
			Name:     JobMappingSync,
			Interval: intervals.MappingSync,
			Run: func(ctx context.Context) (string, error) {
				sum, err := materializer.SyncAllMappings(ctx, nil)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("mappings=%d created=%d updated=%d skipped=%d errors=%d",
					sum.Mappings, sum.Created, sum.Updated, sum.Skipped, len(sum.Errors)), nil
			},
		})
	}
	return jobs
}
