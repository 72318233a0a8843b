package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Jobs and runs
// ---------------------------------------------------------------------------

// RunStatus represents the status of one job run
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
	RunStatusSkipped RunStatus = "SKIPPED"
)

// RunTrigger says what started a run
type RunTrigger string

const (
	TriggerInterval RunTrigger = "interval"
	TriggerManual   RunTrigger = "manual"
)

// Job is a named periodic task. Run returns a one-line summary for the
// run history. Retries are attempted with exponential backoff inside the
// job timeout.
type Job struct {
	Name     string
	Interval time.Duration
	Retries  int
	// RunOnStart fires the first run immediately instead of after one interval
	RunOnStart bool
	Run        func(ctx context.Context) (string, error)
}

func (j Job) validate() error {
	if j.Name == "" || j.Run == nil || j.Interval <= 0 || j.Retries < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidJob, j.Name)
	}
	return nil
}

// JobRun is the record of one execution
type JobRun struct {
	ID          uuid.UUID  `json:"id"`
	Job         string     `json:"job"`
	Trigger     RunTrigger `json:"trigger"`
	Status      RunStatus  `json:"status"`
	Summary     string     `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func newJobRun(job string, trigger RunTrigger, now time.Time) *JobRun {
	return &JobRun{ID: uuid.New(), Job: job, Trigger: trigger, Status: RunStatusRunning, StartedAt: now}
}

// Duration returns how long a finished run took
func (r *JobRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r *JobRun) finish(status RunStatus, summary string, err error, now time.Time) {
	r.Status = status
	r.Summary = summary
	if err != nil {
		r.Error = err.Error()
	}
	r.CompletedAt = &now
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds scheduler configuration
type Config struct {
	// JobTimeout bounds every run including its retries
	JobTimeout time.Duration
	// RetryDelay is the initial backoff interval between attempts
	RetryDelay time.Duration
	// MaxHistory is how many finished runs are kept in memory
	MaxHistory int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout: 10 * time.Minute,
		RetryDelay: 5 * time.Second,
		MaxHistory: 100,
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.JobTimeout <= 0 || c.RetryDelay < 0 || c.MaxHistory <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scheduler
// ---------------------------------------------------------------------------

type registeredJob struct {
	Job
	running atomic.Bool
}

// Scheduler runs registered jobs on their intervals. A job never overlaps
// itself: a tick that arrives while the previous run is active is recorded
// as skipped.
type Scheduler struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	jobs map[string]*registeredJob

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	historyMu sync.RWMutex
	history   []*JobRun
}

// New creates a Scheduler
func New(config Config, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:  config,
		logger:  logger.Named("scheduler"),
		now:     time.Now,
		jobs:    make(map[string]*registeredJob),
		history: make([]*JobRun, 0, config.MaxHistory),
	}, nil
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = &registeredJob{Job: job}
	return nil
}

// Jobs returns the registered job names in order
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches one ticker loop per job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(s.ctx, job)
	}

	s.logger.Info("Scheduler started",
		zap.Strings("jobs", s.Jobs()),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for their loops to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a job now, outside its interval, and returns the started
// run without waiting for it
func (s *Scheduler) Trigger(name string) (JobRun, error) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return JobRun{}, ErrSchedulerNotRunning
	}
	ctx := s.ctx
	job, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return JobRun{}, fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	if !job.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return JobRun{}, fmt.Errorf("%w: %q", ErrJobAlreadyRunning, name)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	run := newJobRun(name, TriggerManual, s.now())
	started := *run
	go func() {
		defer s.wg.Done()
		s.execute(ctx, job, run)
	}()
	return started, nil
}

func (s *Scheduler) loop(ctx context.Context, job *registeredJob) {
	defer s.wg.Done()

	if job.RunOnStart {
		s.tick(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job *registeredJob) {
	run := newJobRun(job.Name, TriggerInterval, s.now())
	if !job.running.CompareAndSwap(false, true) {
		run.finish(RunStatusSkipped, "previous run still active", nil, s.now())
		s.addToHistory(run)
		s.logger.Debug("Job skipped, previous run still active", zap.String("job", job.Name))
		return
	}
	s.execute(ctx, job, run)
}

// execute runs the job with retries; job.running must already be set
func (s *Scheduler) execute(ctx context.Context, job *registeredJob, run *JobRun) {
	defer job.running.Store(false)
	defer s.addToHistory(run)
	defer func() {
		if r := recover(); r != nil {
			run.finish(RunStatusFailed, "", fmt.Errorf("job panicked: %v", r), s.now())
			s.logger.Error("Job panicked", zap.String("job", job.Name), zap.Any("panic", r))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	s.logger.Info("Running job",
		zap.String("job", job.Name),
		zap.String("run_id", run.ID.String()),
		zap.String("trigger", string(run.Trigger)),
	)

	var summary string
	operation := func() error {
		run.Attempts++
		var err error
		summary, err = job.Run(jobCtx)
		return err
	}

	var err error
	if job.Retries > 0 {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = s.config.RetryDelay
		policy.MaxElapsedTime = 0
		notify := func(err error, wait time.Duration) {
			s.logger.Warn("Job attempt failed, retrying",
				zap.String("job", job.Name),
				zap.Int("attempt", run.Attempts),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
		err = backoff.RetryNotify(operation,
			backoff.WithContext(backoff.WithMaxRetries(policy, uint64(job.Retries)), jobCtx), notify)
	} else {
		err = operation()
	}

	if err != nil {
		run.finish(RunStatusFailed, summary, err, s.now())
		s.logger.Error("Job failed",
			zap.String("job", job.Name),
			zap.String("run_id", run.ID.String()),
			zap.Int("attempts", run.Attempts),
			zap.Error(err),
		)
		return
	}
	run.finish(RunStatusSuccess, summary, nil, s.now())
	s.logger.Info("Job completed",
		zap.String("job", job.Name),
		zap.String("run_id", run.ID.String()),
		zap.String("summary", summary),
		zap.Duration("duration", run.Duration()),
	)
}

func (s *Scheduler) addToHistory(run *JobRun) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*JobRun{run}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}

// History returns the most recent finished runs, newest first. An empty
// job name matches every job.
func (s *Scheduler) History(job string, limit int) []JobRun {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 {
		limit = len(s.history)
	}
	out := make([]JobRun, 0, min(limit, len(s.history)))
	for _, run := range s.history {
		if job != "" && run.Job != job {
			continue
		}
		out = append(out, *run)
		if len(out) >= limit {
			break
		}
	}
	return out
}
