// Package queue is a durable job queue stored in the application database.
//
// Jobs are rows in queued_jobs. Workers claim a row by setting reserved_at,
// delete it on success, re-enqueue it with a delay on failure, and move it to
// failed_jobs once its attempts are exhausted. Delivery is at least once.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// DefaultQueue is used when an envelope names no queue.
const DefaultQueue = "default"

var (
	// ErrDuplicateJob is returned by Dispatch when a live unique lock exists for the key.
	ErrDuplicateJob = errors.New("queue: duplicate job")
	// ErrMaxAttemptsExceeded is recorded for jobs reserved after their last attempt was lost.
	ErrMaxAttemptsExceeded = errors.New("queue: max attempts exceeded")
	// ErrJobTimeout is recorded for attempts that outlive their timeout.
	ErrJobTimeout = errors.New("queue: job timed out")
	// ErrNoHandler is recorded for jobs whose type has no registered handler.
	ErrNoHandler = errors.New("queue: no handler registered")
)

// Envelope describes a job to dispatch.
type Envelope struct {
	Type    string
	Payload any

	Queue       string
	Delay       time.Duration
	MaxAttempts int

	// UniqueKey suppresses further dispatches with the same key for UniqueFor.
	UniqueKey string
	UniqueFor time.Duration
}

// Job is a reserved job as seen by a handler.
type Job struct {
	ID          string
	Queue       string
	Type        string
	Payload     []byte
	Attempts    int
	MaxAttempts int
	UniqueKey   string
}

func newJob(row *models.QueuedJob) *Job {
	return &Job{
		ID:          row.ID,
		Queue:       row.Queue,
		Type:        row.Type,
		Payload:     row.Payload,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		UniqueKey:   row.UniqueKey,
	}
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}
	return nil
}

// IsLastAttempt reports whether a failure of the current attempt is terminal.
func (j *Job) IsLastAttempt() bool {
	return j.Attempts >= j.MaxAttempts
}

type releaseError struct {
	delay time.Duration
}

func (e *releaseError) Error() string {
	return fmt.Sprintf("queue: release for %s", e.delay)
}

// Release returns an error that puts the job back on the queue after delay
// without consuming an attempt.
func Release(delay time.Duration) error {
	return &releaseError{delay: delay}
}

// IsRelease reports whether err asks for the job to be released, and the delay.
func IsRelease(err error) (time.Duration, bool) {
	var re *releaseError
	if errors.As(err, &re) {
		return re.delay, true
	}
	return 0, false
}
