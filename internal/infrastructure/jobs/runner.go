package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunFunc is a unit of work. Returning an error wrapped with Permanent (or
// classified permanent by the unit itself) terminates retries immediately;
// any other error is treated as transient and consumes an attempt.
type RunFunc func(ctx context.Context) error

// Job is one enqueued unit of work
type Job struct {
	ID        uuid.UUID
	Key       string // logical key: "<entity_id>:<action>"
	Name      string
	NotBefore time.Time
	Attempt   int
	Run       RunFunc
}

// RunnerConfig holds job runner configuration
type RunnerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	// LockTTL bounds how long a crashed instance can hold a key lease
	LockTTL time.Duration
}

// DefaultRunnerConfig returns default runner settings
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 5 * time.Minute,
		LockTTL:    15 * time.Minute,
	}
}

// Runner executes units of work with bounded retries and per-key
// serialization. At most one job per key is in flight; concurrent triggers
// for the same key are coalesced.
type Runner struct {
	config RunnerConfig
	policy Policy
	locker KeyLocker
	logger *zap.Logger

	// OnPermanentFailure, when set, is invoked after a job exhausts its
	// retry budget or fails permanently. Used for operator visibility.
	OnPermanentFailure func(job *Job, err error)

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRunner creates a job runner
func NewRunner(config RunnerConfig, policy Policy, locker KeyLocker, logger *zap.Logger) *Runner {
	return &Runner{
		config: config,
		policy: policy,
		locker: locker,
		logger: logger.Named("jobs"),
		jobs:   make(chan *Job, config.QueueSize),
	}
}

// Start starts the worker pool
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	r.logger.Info("job runner started",
		zap.Int("workers", r.config.Workers),
		zap.Int("max_attempts", r.policy.MaxAttempts),
	)
	return nil
}

// Stop gracefully stops the runner
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("job runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("job runner stop timed out")
		return ctx.Err()
	}
}

// Enqueue submits a unit of work. A second trigger for a key already in
// flight returns ErrCoalesced and is dropped; callers rely on the eventual
// re-check of state.
func (r *Runner) Enqueue(ctx context.Context, key, name string, notBefore time.Time, run RunFunc) (uuid.UUID, error) {
	r.mu.Lock()
	running := r.isRunning
	r.mu.Unlock()
	if !running {
		return uuid.Nil, ErrRunnerNotRunning
	}

	acquired, err := r.locker.TryLock(ctx, key, r.config.LockTTL)
	if err != nil {
		return uuid.Nil, err
	}
	if !acquired {
		r.logger.Debug("coalesced duplicate trigger", zap.String("key", key), zap.String("job", name))
		return uuid.Nil, ErrCoalesced
	}

	job := &Job{
		ID:        uuid.New(),
		Key:       key,
		Name:      name,
		NotBefore: notBefore,
		Run:       run,
	}

	if !r.submit(job) {
		_ = r.locker.Unlock(ctx, key)
		return uuid.Nil, ErrQueueFull
	}
	return job.ID, nil
}

// submit places a job on the queue, returning false when full or stopped
func (r *Runner) submit(job *Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isRunning {
		return false
	}
	select {
	case r.jobs <- job:
		return true
	default:
		return false
	}
}

// worker processes jobs from the queue
func (r *Runner) worker(ctx context.Context, workerID int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.jobs:
			r.processJob(ctx, job, workerID)
		}
	}
}

// processJob runs one attempt of a job and decides its fate
func (r *Runner) processJob(ctx context.Context, job *Job, workerID int) {
	if wait := time.Until(job.NotBefore); wait > 0 {
		r.resubmitAfter(job, wait)
		return
	}

	job.Attempt++
	log := r.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.Name),
		zap.String("key", job.Key),
		zap.Int("attempt", job.Attempt),
	)

	jobCtx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	err := job.Run(jobCtx)
	cancel()

	switch {
	case err == nil:
		log.Info("job completed")
		r.release(job)

	case IsPermanent(err):
		log.Error("job failed permanently", zap.Error(err))
		r.release(job)
		if r.OnPermanentFailure != nil {
			r.OnPermanentFailure(job, err)
		}

	case job.Attempt >= r.policy.MaxAttempts:
		log.Error("job retry budget exhausted, marking permanently failed",
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Error(err),
		)
		r.release(job)
		if r.OnPermanentFailure != nil {
			r.OnPermanentFailure(job, err)
		}

	default:
		delay := r.policy.DelayFor(job.Attempt)
		log.Warn("job failed transiently, scheduling retry",
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		r.resubmitAfter(job, delay)
	}
}

// resubmitAfter re-queues the job after the delay. If the runner stopped in
// the meantime, the key lease is released so a restart can pick it up.
func (r *Runner) resubmitAfter(job *Job, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if !r.submit(job) {
			r.logger.Warn("dropping retry, runner stopped or queue full",
				zap.String("job_id", job.ID.String()),
				zap.String("job", job.Name),
			)
			r.release(job)
		}
	})
}

// release frees the job's key lease
func (r *Runner) release(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.locker.Unlock(ctx, job.Key); err != nil {
		r.logger.Warn("failed to release job key", zap.String("key", job.Key), zap.Error(err))
	}
}
