package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// DefaultJobTimeout bounds a sync job that carries no timeout of its own
const DefaultJobTimeout = 30 * time.Second

// JobHandler runs one sync job
type JobHandler func(ctx context.Context, job *SyncJob) (*SyncResult, error)

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers    int
	Prefetch   int
	JobTimeout time.Duration
	Logger     *slog.Logger
}

// DefaultConsumerConfig runs a single worker. The engine coalesces
// concurrent syncs for one user, so more workers rarely help.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{Workers: 1, Prefetch: 1, JobTimeout: DefaultJobTimeout}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	cfg.Workers = max(cfg.Workers, 1)
	cfg.Prefetch = max(cfg.Prefetch, 1)
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Consumer pulls sync jobs off SyncQueueName and publishes one result per job
type Consumer struct {
	broker  *Broker
	handler JobHandler
	results *Producer
	cfg     ConsumerConfig

	stop  context.CancelFunc
	group *errgroup.Group
}

// NewConsumer creates a consumer for broker
func NewConsumer(broker *Broker, handler JobHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		broker:  broker,
		handler: handler,
		results: NewProducer(broker, cfg.Logger),
		cfg:     cfg,
	}
}

// Start subscribes to the sync queue and launches the workers
func (c *Consumer) Start(ctx context.Context) error {
	ch := c.broker.Channel()
	if ch == nil {
		return ErrNotConnected
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(SyncQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", SyncQueueName, err)
	}

	ctx, c.stop = context.WithCancel(ctx)
	c.group, ctx = errgroup.WithContext(ctx)
	for n := range c.cfg.Workers {
		c.group.Go(func() error {
			c.loop(ctx, n, deliveries)
			return nil
		})
	}

	c.cfg.Logger.Info("sync consumer started", "workers", c.cfg.Workers, "prefetch", c.cfg.Prefetch)
	return nil
}

func (c *Consumer) loop(ctx context.Context, worker int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.cfg.Logger.Debug("delivery channel closed", "worker", worker)
				return
			}
			c.handle(ctx, d)
		}
	}
}

// handle runs one delivery. Malformed jobs are rejected without requeue.
// Everything else is acked once its result is published, failures included.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	log := c.cfg.Logger

	var job SyncJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.UserID == "" {
		log.Error("dropping malformed sync job", "error", err, "bytes", len(d.Body))
		_ = d.Reject(false)
		return
	}

	started := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, job.deadline(c.cfg.JobTimeout))
	res, err := c.handler(jobCtx, &job)
	timedOut := errors.Is(jobCtx.Err(), context.DeadlineExceeded)
	cancel()

	result := settle(&job, res, err, timedOut, time.Since(started))
	log.Info("sync job finished",
		"job_id", job.ID,
		"user_id", job.UserID,
		"reason", job.Reason,
		"status", result.Status,
		"duration", result.Duration,
	)

	if err := c.results.PublishResult(ctx, result, d.ReplyTo); err != nil {
		log.Error("publish sync result", "job_id", job.ID, "error", err)
	}
	if err := d.Ack(false); err != nil {
		log.Error("ack sync job", "job_id", job.ID, "error", err)
	}
}

// settle turns a handler outcome into the result sent back to the requester
func settle(job *SyncJob, res *SyncResult, err error, timedOut bool, took time.Duration) *SyncResult {
	out := &SyncResult{}
	if res != nil && err == nil {
		*out = *res
	}
	out.JobID = job.ID
	out.UserID = job.UserID
	out.Duration = took
	out.CompletedAt = time.Now()

	switch {
	case timedOut:
		out.Status, out.Error = StatusTimeout, "sync timed out"
	case err != nil:
		out.Status, out.Error = StatusFailed, err.Error()
	case out.Status == "":
		out.Status = StatusCompleted
	}
	return out
}

// Stop cancels the workers and waits for in-flight jobs
func (c *Consumer) Stop() {
	if c.stop == nil {
		return
	}
	c.stop()
	_ = c.group.Wait()
	c.cfg.Logger.Info("sync consumer stopped")
}

// ResultConsumer routes sync results to the callers waiting on them. Each
// consumer owns an exclusive, server-named reply queue, so concurrent
// requesters never see each other's results.
type ResultConsumer struct {
	broker *Broker
	logger *slog.Logger
	queue  string

	mu      sync.Mutex
	waiters map[uuid.UUID]chan *SyncResult

	stop context.CancelFunc
	done chan struct{}
}

// NewResultConsumer creates a result consumer
func NewResultConsumer(broker *Broker) *ResultConsumer {
	return &ResultConsumer{
		broker:  broker,
		logger:  slog.Default(),
		waiters: make(map[uuid.UUID]chan *SyncResult),
	}
}

// Start declares the reply queue and subscribes to it
func (rc *ResultConsumer) Start(ctx context.Context) error {
	ch := rc.broker.Channel()
	if ch == nil {
		return ErrNotConnected
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare reply queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}
	rc.queue = q.Name

	ctx, rc.stop = context.WithCancel(ctx)
	rc.done = make(chan struct{})
	go func() {
		defer close(rc.done)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				rc.route(d.CorrelationId, d.Body)
			}
		}
	}()
	return nil
}

// Queue is the reply queue name, empty until Start
func (rc *ResultConsumer) Queue() string {
	return rc.queue
}

// wait registers interest in id. The returned channel receives at most one result.
func (rc *ResultConsumer) wait(id uuid.UUID) <-chan *SyncResult {
	ch := make(chan *SyncResult, 1)
	rc.mu.Lock()
	rc.waiters[id] = ch
	rc.mu.Unlock()
	return ch
}

func (rc *ResultConsumer) forget(id uuid.UUID) {
	rc.mu.Lock()
	delete(rc.waiters, id)
	rc.mu.Unlock()
}

// route hands a result to its waiter, matched by correlation id or, when
// the message carries none, by the job id in the body. Results nobody
// waits for are late replies and are dropped.
func (rc *ResultConsumer) route(correlationID string, body []byte) {
	var result SyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		rc.logger.Warn("dropping malformed sync result", "error", err)
		return
	}
	id := result.JobID
	if parsed, err := uuid.Parse(correlationID); err == nil {
		id = parsed
	}

	rc.mu.Lock()
	ch, ok := rc.waiters[id]
	delete(rc.waiters, id)
	rc.mu.Unlock()

	if ok {
		ch <- &result
	} else {
		rc.logger.Debug("dropping unclaimed sync result", "job_id", id)
	}
}

// Await publishes job with this consumer's reply queue and blocks until
// its result arrives or ctx ends
func (rc *ResultConsumer) Await(ctx context.Context, producer *Producer, job *SyncJob) (*SyncResult, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	// register before publishing so a fast worker cannot beat us
	reply := rc.wait(job.ID)
	defer rc.forget(job.ID)

	if err := producer.PublishSyncJob(ctx, job, WithReplyTo(rc.queue, job.ID.String())); err != nil {
		return nil, err
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop stops the result consumer
func (rc *ResultConsumer) Stop() {
	if rc.stop == nil {
		return
	}
	rc.stop()
	<-rc.done
}
