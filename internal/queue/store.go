package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reserveRetries bounds how often Reserve retries after losing a claim race.
const reserveRetries = 5

// Store persists jobs, failed jobs and unique locks through gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Push inserts job. When job.UniqueKey is set, a lock on the key is taken for
// uniqueFor in the same transaction and ErrDuplicateJob is returned if a live
// lock already exists.
func (s *Store) Push(ctx context.Context, job *models.QueuedJob, uniqueFor time.Duration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if job.UniqueKey != "" {
			if err := s.acquireLock(tx, job.UniqueKey, job.ID, uniqueFor); err != nil {
				return err
			}
		}

		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
		return nil
	})
}

func (s *Store) acquireLock(tx *gorm.DB, key, jobID string, ttl time.Duration) error {
	now := s.now()

	if err := tx.Where("lock_key = ? AND expires_at <= ?", key, now).Delete(&models.JobLock{}).Error; err != nil {
		return fmt.Errorf("failed to clear expired lock: %w", err)
	}

	lock := models.JobLock{Key: key, JobID: jobID, ExpiresAt: now.Add(ttl)}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return fmt.Errorf("failed to acquire lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateJob
	}
	return nil
}

// Reserve claims the oldest available job on queue and counts the attempt.
// It returns nil when nothing is available.
func (s *Store) Reserve(ctx context.Context, queue string) (*models.QueuedJob, error) {
	db := s.db.WithContext(ctx)

	for i := 0; i < reserveRetries; i++ {
		now := s.now()

		var candidate models.QueuedJob
		err := db.Where("queue = ? AND reserved_at IS NULL AND available_at <= ?", queue, now).
			Order("available_at ASC").
			Order("created_at ASC").
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find job: %w", err)
		}

		result := db.Model(&models.QueuedJob{}).
			Where("id = ? AND reserved_at IS NULL", candidate.ID).
			Updates(map[string]any{
				"reserved_at": now,
				"attempts":    gorm.Expr("attempts + 1"),
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to reserve job: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			candidate.ReservedAt = &now
			candidate.Attempts++
			return &candidate, nil
		}
		// Another worker claimed it first.
	}

	return nil, nil
}

// Delete acknowledges a finished job.
func (s *Store) Delete(ctx context.Context, job *models.QueuedJob) error {
	if err := s.db.WithContext(ctx).Delete(&models.QueuedJob{}, "id = ?", job.ID).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Release makes a reserved job available again after delay. With refund the
// attempt taken by the reservation is given back.
func (s *Store) Release(ctx context.Context, job *models.QueuedJob, delay time.Duration, refund bool) error {
	attempts := job.Attempts
	if refund && attempts > 0 {
		attempts--
	}

	err := s.db.WithContext(ctx).Model(&models.QueuedJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"reserved_at":  nil,
			"available_at": s.now().Add(delay),
			"attempts":     attempts,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release job: %w", err)
	}

	job.ReservedAt = nil
	job.Attempts = attempts
	return nil
}

// Bury moves a job to failed_jobs.
func (s *Store) Bury(ctx context.Context, job *models.QueuedJob, cause error) error {
	exception := ""
	if cause != nil {
		exception = cause.Error()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		failed := models.FailedJob{
			JobID:       job.ID,
			Queue:       job.Queue,
			Type:        job.Type,
			Payload:     job.Payload,
			Exception:   exception,
			Attempts:    job.Attempts,
			MaxAttempts: job.MaxAttempts,
			FailedAt:    s.now(),
		}
		if err := tx.Create(&failed).Error; err != nil {
			return fmt.Errorf("failed to record failed job: %w", err)
		}

		if err := tx.Delete(&models.QueuedJob{}, "id = ?", job.ID).Error; err != nil {
			return fmt.Errorf("failed to delete job: %w", err)
		}
		return nil
	})
}

// RecoverStale makes jobs reserved before now-olderThan available again.
// Their attempts stay counted.
func (s *Store) RecoverStale(ctx context.Context, queue string, olderThan time.Duration) (int64, error) {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.QueuedJob{}).
		Where("queue = ? AND reserved_at IS NOT NULL AND reserved_at < ?", queue, now.Add(-olderThan)).
		Updates(map[string]any{
			"reserved_at":  nil,
			"available_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to recover stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeExpiredLocks deletes unique locks whose window has passed.
func (s *Store) PurgeExpiredLocks(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.JobLock{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge locks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Pending counts jobs on queue, reserved or not.
func (s *Store) Pending(ctx context.Context, queue string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.QueuedJob{}).Where("queue = ?", queue).Count(&total).Error
	return total, err
}

// Jobs lists the jobs on queue in dispatch order.
func (s *Store) Jobs(ctx context.Context, queue string) ([]models.QueuedJob, error) {
	var jobs []models.QueuedJob
	err := s.db.WithContext(ctx).Where("queue = ?", queue).Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}

// ListFailed lists failed jobs, newest first.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]models.FailedJob, error) {
	var failed []models.FailedJob
	query := s.db.WithContext(ctx).Order("failed_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&failed).Error; err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", err)
	}
	return failed, nil
}

// RetryFailed pushes a failed job back onto its queue with a fresh attempt count
// and the attempt budget it was dispatched with. The unique lock is not re-taken.
func (s *Store) RetryFailed(ctx context.Context, id uint64, newID string) (*models.QueuedJob, error) {
	var job *models.QueuedJob

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var failed models.FailedJob
		if err := tx.First(&failed, id).Error; err != nil {
			return err
		}

		maxAttempts := failed.MaxAttempts
		if maxAttempts <= 0 {
			maxAttempts = 1
		}

		job = &models.QueuedJob{
			ID:          newID,
			Queue:       failed.Queue,
			Type:        failed.Type,
			Payload:     failed.Payload,
			MaxAttempts: maxAttempts,
			AvailableAt: s.now(),
			CreatedAt:   s.now(),
		}
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to requeue job: %w", err)
		}
		return tx.Delete(&models.FailedJob{}, failed.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
