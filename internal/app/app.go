// Package app wires the components shared by the API server and the worker.
package app

import (
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/jobs"
	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/ratelimit"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenDatabase connects and migrates the configured database.
func OpenDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, logger); err != nil {
		return nil, err
	}
	return db, nil
}

// NewNotificationWorker builds a worker for the notifications queue with every
// notification handler registered.
func NewNotificationWorker(cfg *config.Config, db *gorm.DB, store *queue.Store, logger *zap.Logger) (*queue.Worker, error) {
	mailer, err := mail.NewMailer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	worker := queue.NewWorker(store, queue.WorkerConfig{
		Queue:        jobs.QueueNotifications,
		Concurrency:  cfg.QueueWorkers,
		PollInterval: cfg.QueuePollInterval,
	}, logger)

	jobs.Register(worker, jobs.Deps{
		Tasks:    repository.NewTaskRepository(db),
		Projects: repository.NewProjectRepository(db),
		Users:    repository.NewUserRepository(db),
		Mailer:   mailer,
		Composer: mail.Composer{AppURL: cfg.AppURL},
		Limiter: ratelimit.New(ratelimit.Config{
			MaxPerWindow: cfg.NotificationRateLimit,
			Window:       time.Minute,
			Enabled:      cfg.NotificationRateLimit > 0,
		}),
		AdminEmail: cfg.AdminEmail,
		BccAdmin:   cfg.BccAdmin,
		Logger:     logger,
	})

	return worker, nil
}
