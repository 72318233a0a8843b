package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() Config {
	return Config{JobTimeout: time.Second, RetryDelay: time.Millisecond, MaxHistory: 10}
}

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func okJob(name string, interval time.Duration, calls *atomic.Int32) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "done", nil
		},
	}
}

func waitForRuns(t *testing.T, s *Scheduler, job string, n int) []JobRun {
	t.Helper()
	var runs []JobRun
	require.Eventually(t, func() bool {
		runs = s.History(job, 0)
		return len(runs) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return runs
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.JobTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxHistory = 0
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	var calls atomic.Int32

	require.NoError(t, s.Register(okJob("b", time.Hour, &calls)))
	require.NoError(t, s.Register(okJob("a", time.Hour, &calls)))

	t.Run("duplicate name", func(t *testing.T) {
		assert.ErrorIs(t, s.Register(okJob("a", time.Hour, &calls)), ErrDuplicateJob)
	})

	t.Run("invalid definitions", func(t *testing.T) {
		assert.ErrorIs(t, s.Register(Job{Name: "x", Interval: time.Second}), ErrInvalidJob)
		assert.ErrorIs(t, s.Register(okJob("", time.Second, &calls)), ErrInvalidJob)
		assert.ErrorIs(t, s.Register(okJob("x", 0, &calls)), ErrInvalidJob)
	})

	assert.Equal(t, []string{"a", "b"}, s.Jobs())

	t.Run("after start", func(t *testing.T) {
		require.NoError(t, s.Start(context.Background()))
		assert.ErrorIs(t, s.Register(okJob("c", time.Hour, &calls)), ErrSchedulerRunning)
	})
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	var calls atomic.Int32
	require.NoError(t, s.Register(okJob("tick", 10*time.Millisecond, &calls)))
	require.NoError(t, s.Start(context.Background()))

	runs := waitForRuns(t, s, "tick", 2)
	for _, run := range runs {
		assert.Equal(t, TriggerInterval, run.Trigger)
		assert.Equal(t, RunStatusSuccess, run.Status)
		assert.Equal(t, "done", run.Summary)
		assert.Equal(t, 1, run.Attempts)
		require.NotNil(t, run.CompletedAt)
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestScheduler_RunOnStart(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	var calls atomic.Int32
	job := okJob("eager", time.Hour, &calls)
	job.RunOnStart = true
	require.NoError(t, s.Register(job))
	require.NoError(t, s.Start(context.Background()))

	waitForRuns(t, s, "eager", 1)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_SkipsOverlappingTick(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	release := make(chan struct{})
	require.NoError(t, s.Register(Job{
		Name:     "slow",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) (string, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return "", nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		for _, run := range s.History("slow", 0) {
			if run.Status == RunStatusSkipped {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
}

func TestScheduler_Trigger(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		s := newTestScheduler(t, testConfig())
		_, err := s.Trigger("any")
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})

	t.Run("unknown job", func(t *testing.T) {
		s := newTestScheduler(t, testConfig())
		require.NoError(t, s.Start(context.Background()))
		_, err := s.Trigger("missing")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("manual run", func(t *testing.T) {
		s := newTestScheduler(t, testConfig())
		var calls atomic.Int32
		require.NoError(t, s.Register(okJob("manual", time.Hour, &calls)))
		require.NoError(t, s.Start(context.Background()))

		run, err := s.Trigger("manual")
		require.NoError(t, err)
		assert.Equal(t, RunStatusRunning, run.Status)
		assert.Equal(t, TriggerManual, run.Trigger)

		runs := waitForRuns(t, s, "manual", 1)
		assert.Equal(t, run.ID, runs[0].ID)
		assert.Equal(t, RunStatusSuccess, runs[0].Status)
	})

	t.Run("already running", func(t *testing.T) {
		s := newTestScheduler(t, testConfig())
		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, s.Register(Job{
			Name:     "busy",
			Interval: time.Hour,
			Run: func(ctx context.Context) (string, error) {
				close(started)
				<-release
				return "", nil
			},
		}))
		require.NoError(t, s.Start(context.Background()))

		_, err := s.Trigger("busy")
		require.NoError(t, err)
		<-started

		_, err = s.Trigger("busy")
		assert.ErrorIs(t, err, ErrJobAlreadyRunning)
		close(release)
		waitForRuns(t, s, "busy", 1)
	})
}

func TestScheduler_Retries(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:     "flaky",
		Interval: time.Hour,
		Retries:  3,
		Run: func(ctx context.Context) (string, error) {
			if calls.Add(1) < 3 {
				return "", errors.New("upstream unavailable")
			}
			return "recovered", nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	_, err := s.Trigger("flaky")
	require.NoError(t, err)

	run := waitForRuns(t, s, "flaky", 1)[0]
	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.Equal(t, 3, run.Attempts)
	assert.Equal(t, "recovered", run.Summary)
}

func TestScheduler_RetriesExhausted(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Retries:  2,
		Run: func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "", errors.New("still broken")
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	_, err := s.Trigger("broken")
	require.NoError(t, err)

	run := waitForRuns(t, s, "broken", 1)[0]
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "still broken", run.Error)
	assert.Equal(t, 3, run.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScheduler_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.JobTimeout = 20 * time.Millisecond
	s := newTestScheduler(t, cfg)
	require.NoError(t, s.Register(Job{
		Name:     "hang",
		Interval: time.Hour,
		Run: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	_, err := s.Trigger("hang")
	require.NoError(t, err)

	run := waitForRuns(t, s, "hang", 1)[0]
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), run.Error)
}

func TestScheduler_RecoversPanic(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	require.NoError(t, s.Register(Job{
		Name:     "panics",
		Interval: time.Hour,
		Run: func(ctx context.Context) (string, error) {
			panic("boom")
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	_, err := s.Trigger("panics")
	require.NoError(t, err)

	run := waitForRuns(t, s, "panics", 1)[0]
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "boom")

	// the job is runnable again
	_, err = s.Trigger("panics")
	assert.NoError(t, err)
	waitForRuns(t, s, "panics", 2)
}

func TestScheduler_History(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHistory = 3
	s := newTestScheduler(t, cfg)

	for i := 0; i < 5; i++ {
		s.addToHistory(&JobRun{Job: "a", Summary: string(rune('0' + i))})
	}
	s.addToHistory(&JobRun{Job: "b"})

	all := s.History("", 0)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].Job)
	assert.Equal(t, "4", all[1].Summary)

	onlyA := s.History("a", 1)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "4", onlyA[0].Summary)

	assert.Empty(t, s.History("missing", 0))
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	assert.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
