package catalogsync

import (
	"context"
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestJobs_Definitions(t *testing.T) {
	f := newFixture()
	defer f.close()
	rec := NewSourcingReconciler(new(MockSupplier), f.sourcing, f.products, f.settings, nil)

	jobs := Jobs(rec, f.materializer, JobIntervals{SourcingReconcile: time.Minute, MappingSync: time.Hour})
	require.Len(t, jobs, 2)
	assert.Equal(t, JobSourcingReconcile, jobs[0].Name)
	assert.Equal(t, time.Minute, jobs[0].Interval)
	assert.Equal(t, JobMappingSync, jobs[1].Name)
	assert.Equal(t, time.Hour, jobs[1].Interval)

	t.Run("zero interval disables", func(t *testing.T) {
		jobs := Jobs(rec, f.materializer, JobIntervals{SourcingReconcile: time.Minute})
		require.Len(t, jobs, 1)
		assert.Equal(t, JobSourcingReconcile, jobs[0].Name)
	})

	t.Run("nil service skipped", func(t *testing.T) {
		assert.Empty(t, Jobs(nil, nil, JobIntervals{SourcingReconcile: time.Minute, MappingSync: time.Minute}))
	})
}

func TestJobs_Run(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()

	req, err := integration.NewSourcingRequest(f.settings.SupplierID, integration.SourcingSubmission{ProductName: "Mug"})
	require.NoError(t, err)
	req.SourcingID, req.Status = "S1", integration.SourcingPending
	require.NoError(t, f.sourcing.Save(ctx, req))

	src := new(MockSupplier)
	src.On("QuerySourcing", mock.Anything, []string{"S1"}).
		Return([]integration.SourcingResult{{SourcingID: "S1", Status: "FAILED", FailureReason: "gone"}}, nil)
	rec := NewSourcingReconciler(src, f.sourcing, f.products, f.settings, nil)

	jobs := Jobs(rec, f.materializer, JobIntervals{SourcingReconcile: time.Minute, MappingSync: time.Minute})

	summary, err := jobs[0].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "checked=1 changed=1 errors=0", summary)

	summary, err = jobs[1].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mappings=0 created=0 updated=0 skipped=0 errors=0", summary)
}
