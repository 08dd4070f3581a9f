package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/ratelimit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errSkip marks a notification whose precondition no longer holds.
var errSkip = errors.New("notification skipped")

// notifier holds the delivery steps shared by every notification handler.
type notifier struct {
	deps   Deps
	logger *zap.Logger
}

func newNotifier(deps Deps) *notifier {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.New(ratelimit.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &notifier{
		deps:   deps,
		logger: deps.Logger.With(zap.String("component", "notification_jobs")),
	}
}

// recipient loads an active user to notify.
func (n *notifier) recipient(ctx context.Context, id uint64) (*models.User, error) {
	user, err := n.deps.Users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: recipient %d no longer exists", errSkip, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}
	if !user.IsActive() {
		return nil, fmt.Errorf("%w: recipient %d is %s", errSkip, id, user.Status)
	}
	return user, nil
}

// deliver applies the rate limit and sends msg. A rate limited message is
// released for RateLimitDelay without consuming an attempt.
func (n *notifier) deliver(ctx context.Context, job *queue.Job, recipientID, entityID uint64, msg *mail.Message) error {
	key := fmt.Sprintf("%s:%d", job.Type, recipientID)
	if !n.deps.Limiter.Allow(key) {
		metrics.NotificationsRateLimitedTotal.WithLabelValues(job.Type).Inc()
		n.logger.Info("notification rate limited, releasing",
			zap.String("job_id", job.ID),
			zap.String("job_type", job.Type),
			zap.Uint64("recipient_id", recipientID),
			zap.Duration("delay", RateLimitDelay))
		return queue.Release(RateLimitDelay)
	}

	if n.deps.BccAdmin {
		msg = msg.WithBcc(n.deps.AdminEmail)
	}

	if err := n.deps.Mailer.Send(ctx, msg); err != nil {
		n.deps.Limiter.Release(key)
		return fmt.Errorf("failed to send notification: %w", err)
	}

	metrics.NotificationsSentTotal.WithLabelValues(job.Type).Inc()
	n.logger.Info("notification sent",
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Uint64("recipient_id", recipientID),
		zap.Strings("to", msg.To),
		zap.Uint64("entity_id", entityID))
	return nil
}

// outcome turns a skip into success and logs it.
func (n *notifier) outcome(job *queue.Job, err error) error {
	if errors.Is(err, errSkip) {
		metrics.NotificationsSkippedTotal.WithLabelValues(job.Type).Inc()
		n.logger.Info("notification skipped",
			zap.String("job_id", job.ID),
			zap.String("job_type", job.Type),
			zap.String("reason", err.Error()))
		return nil
	}
	return err
}

// failed logs a job that exhausted its attempts and alerts the admin when one
// is configured. Alert failures are logged only.
func (n *notifier) failed(ctx context.Context, job *queue.Job, cause error, entity string, entityID, recipientID uint64, actor ActorRef) {
	n.logger.Error("notification permanently failed",
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.String("entity", entity),
		zap.Uint64("entity_id", entityID),
		zap.Uint64("recipient_id", recipientID),
		zap.Uint64("actor_id", actor.ID),
		zap.String("actor_name", actor.Name),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause))

	if n.deps.AdminEmail == "" {
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "A notification could not be delivered.\n\n")
	fmt.Fprintf(&body, "Job:       %s (%s)\n", job.ID, job.Type)
	fmt.Fprintf(&body, "Entity:    %s #%d\n", entity, entityID)
	fmt.Fprintf(&body, "Recipient: user #%d\n", recipientID)
	fmt.Fprintf(&body, "Actor:     %s (#%d)\n", actor.Name, actor.ID)
	fmt.Fprintf(&body, "Attempts:  %d\n", job.Attempts)
	if cause != nil {
		fmt.Fprintf(&body, "Error:     %s\n", cause.Error())
	}

	alert := n.deps.Composer.AdminAlert(n.deps.AdminEmail, fmt.Sprintf("Notification failed: %s #%d", entity, entityID), body.String())
	if err := n.deps.Mailer.Send(ctx, alert); err != nil {
		n.logger.Error("failed to send admin alert",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
