package queue

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Producer publishes sync jobs, results and progress events
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer wraps pub. A nil logger falls back to slog.Default.
func NewProducer(pub Publisher, logger ...*slog.Logger) *Producer {
	p := &Producer{pub: pub, logger: slog.Default()}
	if len(logger) > 0 && logger[0] != nil {
		p.logger = logger[0]
	}
	return p
}

// PublishSyncJob publishes a sync request to the queue
func (p *Producer) PublishSyncJob(ctx context.Context, job *SyncJob, opts ...PublishOption) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.pub.PublishJSON(ctx, SyncQueueName, job, opts...); err != nil {
		return fmt.Errorf("publish sync job: %w", err)
	}
	p.logger.Debug("sync job queued", "job_id", job.ID, "user_id", job.UserID, "reason", job.Reason)
	return nil
}

// PublishResult publishes a sync result to replyTo, the requester's own
// queue, or to the shared results queue when the job named none
func (p *Producer) PublishResult(ctx context.Context, result *SyncResult, replyTo string) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	queue := cmp.Or(replyTo, ResultQueueName)
	if err := p.pub.PublishJSON(ctx, queue, result, WithCorrelationID(result.JobID.String())); err != nil {
		return fmt.Errorf("publish sync result: %w", err)
	}
	return nil
}

// PublishEvent publishes a domain event to the events queue
func (p *Producer) PublishEvent(ctx context.Context, userID string, event domain.Event) error {
	msg, err := wireEvent(userID, event)
	if err != nil {
		return err
	}
	if err := p.pub.PublishJSON(ctx, EventQueueName, msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

// Forward subscribes to every event of d and publishes it. Publish failures
// are logged; they never reach the mutating caller.
func (p *Producer) Forward(d *domain.EventDispatcher, userID string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d.SubscribeAll(func(event domain.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.PublishEvent(ctx, userID, event); err != nil {
			p.logger.Warn("event forwarding failed", "type", event.EventType(), "error", err)
		}
	})
}

// wireEvent wraps a domain event in its queue envelope
func wireEvent(userID string, event domain.Event) (*ProgressEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return &ProgressEvent{
		ID:         event.EventID(),
		Type:       event.EventType(),
		UserID:     userID,
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}, nil
}
