package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a job on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerRunning is returned when registering a job after Start
	ErrSchedulerRunning = errors.New("scheduler already started")

	// ErrJobNotFound is returned for an unknown job name
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when a job name is registered twice
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobAlreadyRunning is returned when a job is triggered while its previous run is active
	ErrJobAlreadyRunning = errors.New("job already running")

	// ErrInvalidJob is returned for a job without a name, a run func or a positive interval
	ErrInvalidJob = errors.New("invalid job definition")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
