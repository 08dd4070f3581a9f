package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler executes one job type.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// FailedHandler is implemented by handlers that want to know when a job has
// failed for good.
type FailedHandler interface {
	Failed(ctx context.Context, job *Job, cause error)
}

// Policy controls how a job type is retried.
type Policy struct {
	// Backoff is the delay before a failed attempt is retried.
	Backoff time.Duration
	// Timeout bounds a single attempt. Zero means no timeout.
	Timeout time.Duration
	// FailOnTimeout fails the job outright when an attempt times out instead
	// of treating it as an ordinary failed attempt.
	FailOnTimeout bool
}

type registration struct {
	handler Handler
	policy  Policy
}

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Queue        string
	Concurrency  int
	PollInterval time.Duration
	// MaintenanceInterval is how often stale reservations and expired locks are cleaned up.
	MaintenanceInterval time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig with reasonable defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Queue:               DefaultQueue,
		Concurrency:         2,
		PollInterval:        time.Second,
		MaintenanceInterval: time.Minute,
	}
}

// Worker reserves jobs from one queue and runs their handlers.
type Worker struct {
	store    *Store
	config   WorkerConfig
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string]registration
}

// NewWorker creates a Worker for config.Queue.
func NewWorker(store *Store, config WorkerConfig, logger *zap.Logger) *Worker {
	defaults := DefaultWorkerConfig()
	if config.Queue == "" {
		config.Queue = defaults.Queue
	}
	if config.Concurrency <= 0 {
		logger.Warn("invalid worker concurrency specified, using default",
			zap.Int("specified", config.Concurrency),
			zap.Int("default", defaults.Concurrency))
		config.Concurrency = defaults.Concurrency
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MaintenanceInterval <= 0 {
		config.MaintenanceInterval = defaults.MaintenanceInterval
	}

	return &Worker{
		store:    store,
		config:   config,
		logger:   logger.With(zap.String("component", "queue_worker"), zap.String("queue", config.Queue)),
		handlers: make(map[string]registration),
	}
}

// Register binds handler to jobType.
func (w *Worker) Register(jobType string, handler Handler, policy Policy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = registration{handler: handler, policy: policy}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting queue worker", zap.Int("concurrency", w.config.Concurrency))

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.config.Concurrency; i++ {
		workerID := i
		g.Go(func() error {
			w.loop(gCtx, workerID)
			return nil
		})
	}
	g.Go(func() error {
		w.maintain(gCtx)
		return nil
	})

	err := g.Wait()
	w.logger.Info("queue worker stopped")
	return err
}

func (w *Worker) loop(ctx context.Context, workerID int) {
	logger := w.logger.With(zap.Int("worker_id", workerID))

	for {
		processed, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("failed to process job", zap.Error(err))
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.PollInterval):
		}
	}
}

func (w *Worker) maintain(ctx context.Context) {
	ticker := time.NewTicker(w.config.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Maintain(ctx)
		}
	}
}

// Maintain re-queues reservations abandoned by crashed workers and purges expired locks.
func (w *Worker) Maintain(ctx context.Context) {
	recovered, err := w.store.RecoverStale(ctx, w.config.Queue, w.staleAfter())
	if err != nil {
		w.logger.Error("failed to recover stale jobs", zap.Error(err))
	} else if recovered > 0 {
		w.logger.Warn("recovered stale job reservations", zap.Int64("count", recovered))
	}

	if _, err := w.store.PurgeExpiredLocks(ctx); err != nil {
		w.logger.Error("failed to purge expired locks", zap.Error(err))
	}
}

// staleAfter is the longest registered timeout plus a grace period.
func (w *Worker) staleAfter() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()

	longest := time.Minute
	for _, reg := range w.handlers {
		if reg.policy.Timeout > longest {
			longest = reg.policy.Timeout
		}
	}
	return 2 * longest
}

// ProcessNext reserves and processes at most one job. It reports whether a job was found.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	row, err := w.store.Reserve(ctx, w.config.Queue)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}

	return true, w.process(ctx, row)
}

// Drain processes available jobs until none is left and returns how many ran.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	count := 0
	for {
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			return count, err
		}
		if !processed {
			return count, nil
		}
		count++
	}
}

func (w *Worker) process(ctx context.Context, row *models.QueuedJob) error {
	job := newJob(row)
	logger := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts))

	// Acks outlive the worker context so a shutdown never strands a reserved row.
	ackCtx := context.WithoutCancel(ctx)

	w.mu.RLock()
	reg, ok := w.handlers[job.Type]
	w.mu.RUnlock()
	if !ok {
		logger.Error("no handler registered for job type")
		return w.fail(ackCtx, row, job, registration{}, ErrNoHandler)
	}

	if job.Attempts > job.MaxAttempts {
		return w.fail(ackCtx, row, job, reg, ErrMaxAttemptsExceeded)
	}

	start := time.Now()
	err := w.run(ctx, reg, job)
	metrics.JobDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.JobsProcessedTotal.WithLabelValues(job.Type, "success").Inc()
		logger.Debug("job completed")
		return w.store.Delete(ackCtx, row)
	}

	if ctx.Err() != nil {
		metrics.JobsProcessedTotal.WithLabelValues(job.Type, "interrupted").Inc()
		logger.Info("job interrupted by shutdown, releasing", zap.Error(err))
		return w.store.Release(ackCtx, row, 0, true)
	}

	if delay, ok := IsRelease(err); ok {
		metrics.JobsProcessedTotal.WithLabelValues(job.Type, "released").Inc()
		logger.Info("job released", zap.Duration("delay", delay))
		return w.store.Release(ackCtx, row, delay, true)
	}

	if errors.Is(err, ErrJobTimeout) && reg.policy.FailOnTimeout {
		return w.fail(ackCtx, row, job, reg, err)
	}

	if job.IsLastAttempt() {
		return w.fail(ackCtx, row, job, reg, err)
	}

	metrics.JobsProcessedTotal.WithLabelValues(job.Type, "retry").Inc()
	logger.Warn("job attempt failed, retrying",
		zap.Error(err),
		zap.Duration("backoff", reg.policy.Backoff))
	return w.store.Release(ackCtx, row, reg.policy.Backoff, false)
}

// run executes the handler under the policy timeout. A handler that outlives
// its timeout keeps running detached; its result is discarded.
func (w *Worker) run(ctx context.Context, reg registration, job *Job) error {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if reg.policy.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, reg.policy.Timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("job panicked: %v", r)
			}
		}()
		done <- reg.handler.Handle(runCtx, job)
	}()

	select {
	case err := <-done:
		if err == nil || runCtx.Err() == nil {
			return err
		}
	case <-runCtx.Done():
		// A handler that finished before the deadline still counts as done.
		select {
		case err := <-done:
			if err == nil {
				return nil
			}
		default:
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w after %s", ErrJobTimeout, reg.policy.Timeout)
}

func (w *Worker) fail(ctx context.Context, row *models.QueuedJob, job *Job, reg registration, cause error) error {
	metrics.JobsProcessedTotal.WithLabelValues(job.Type, "failed").Inc()
	w.logger.Error("job failed",
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause))

	if err := w.store.Bury(ctx, row, cause); err != nil {
		return err
	}

	if fh, ok := reg.handler.(FailedHandler); ok {
		w.runFailedHook(ctx, fh, job, cause)
	}
	return nil
}

func (w *Worker) runFailedHook(ctx context.Context, fh FailedHandler, job *Job, cause error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("failed hook panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
		}
	}()
	fh.Failed(ctx, job, cause)
}
