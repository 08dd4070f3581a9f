package models

import "time"

// QueuedJob is a pending unit of background work. A row is deleted on success
// and moved to failed_jobs once its attempts are exhausted.
type QueuedJob struct {
	ID          string     `gorm:"type:varchar(36);primarykey" json:"id"`
	Queue       string     `gorm:"type:varchar(100);not null;index:idx_queued_jobs_queue_available,priority:1" json:"queue"`
	Type        string     `gorm:"type:varchar(100);not null" json:"type"`
	Payload     []byte     `gorm:"not null" json:"payload"`
	Attempts    int        `gorm:"not null" json:"attempts"`
	MaxAttempts int        `gorm:"not null" json:"max_attempts"`
	UniqueKey   string     `gorm:"type:varchar(255)" json:"unique_key,omitempty"`
	AvailableAt time.Time  `gorm:"not null;index:idx_queued_jobs_queue_available,priority:2" json:"available_at"`
	ReservedAt  *time.Time `gorm:"index" json:"reserved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FailedJob is the dead-letter record of a job that exhausted its attempts.
type FailedJob struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	JobID       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"job_id"`
	Queue       string    `gorm:"type:varchar(100);not null" json:"queue"`
	Type        string    `gorm:"type:varchar(100);not null" json:"type"`
	Payload     []byte    `gorm:"not null" json:"payload"`
	Exception   string    `gorm:"type:text" json:"exception"`
	Attempts    int       `gorm:"not null" json:"attempts"`
	MaxAttempts int       `gorm:"not null;default:1" json:"max_attempts"`
	FailedAt    time.Time `gorm:"not null;index" json:"failed_at"`
}

// JobLock suppresses duplicate jobs sharing a unique key until ExpiresAt
// or until the owning job finishes.
type JobLock struct {
	Key       string    `gorm:"column:lock_key;type:varchar(255);primarykey" json:"key"`
	JobID     string    `gorm:"type:varchar(36);not null" json:"job_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
