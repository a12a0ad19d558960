package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned when publishing without an open channel
var ErrNotConnected = errors.New("queue not connected")

// Publisher sends a JSON document to a named queue
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, data any, opts ...PublishOption) error
}

// PublishOption sets AMQP properties on an outgoing message
type PublishOption func(*amqp.Publishing)

// WithReplyTo asks the consumer of a request to answer on queue, tagged
// with correlationID
func WithReplyTo(queue, correlationID string) PublishOption {
	return func(p *amqp.Publishing) {
		p.ReplyTo = queue
		p.CorrelationId = correlationID
	}
}

// WithCorrelationID tags a reply with the id of its request
func WithCorrelationID(id string) PublishOption {
	return func(p *amqp.Publishing) { p.CorrelationId = id }
}

var _ Publisher = (*Broker)(nil)

// queueSpec is one durable queue and how long its messages live.
type queueSpec struct {
	name string
	ttl  time.Duration
}

func (q queueSpec) args() amqp.Table {
	return amqp.Table{"x-message-ttl": int32(q.ttl.Milliseconds())}
}

// topology lists every queue the broker declares on connect. Sync jobs
// go stale fast; events are kept for an hour so a slow reader can catch up.
var topology = []queueSpec{
	{name: SyncQueueName, ttl: 5 * time.Minute},
	{name: ResultQueueName, ttl: time.Minute},
	{name: EventQueueName, ttl: time.Hour},
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBrokerLogger sets the broker's logger.
func WithBrokerLogger(l *slog.Logger) BrokerOption {
	return func(b *Broker) { b.logger = l }
}

// WithRedialAttempts bounds how often a dropped connection is redialed.
func WithRedialAttempts(n int) BrokerOption {
	return func(b *Broker) { b.attempts = n }
}

// Broker owns one AMQP connection and channel. When the server drops the
// connection it is redialed in the background with exponential backoff.
type Broker struct {
	url      string
	logger   *slog.Logger
	attempts int

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel

	ctx     context.Context
	cancel  context.CancelFunc
	redials atomic.Int64
}

// Dial connects to rawURL and declares the queue topology.
func Dial(rawURL string, opts ...BrokerOption) (*Broker, error) {
	b := &Broker{url: rawURL, logger: slog.Default(), attempts: 10}
	for _, opt := range opts {
		opt(b)
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	if err := b.open(); err != nil {
		b.cancel()
		return nil, err
	}
	return b, nil
}

func (b *Broker) open() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	for _, q := range topology {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args()); err != nil {
			conn.Close()
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	b.mu.Lock()
	b.conn, b.ch = conn, ch
	b.mu.Unlock()

	go b.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	b.logger.Info("queue connected", "url", redactURL(b.url))
	return nil
}

// watch waits for the connection to drop and redials unless Close was called.
func (b *Broker) watch(closed <-chan *amqp.Error) {
	var cause *amqp.Error
	select {
	case cause = <-closed:
	case <-b.ctx.Done():
		return
	}
	if cause == nil || b.ctx.Err() != nil {
		return
	}

	b.logger.Warn("queue connection lost", "error", cause)

	redial := retry.New[struct{}](retry.Config{
		MaxAttempts:   b.attempts,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	})
	_, err := redial.Do(b.ctx, func(ctx context.Context) (struct{}, error) {
		b.redials.Add(1)
		return struct{}{}, b.open()
	})
	if err != nil && b.ctx.Err() == nil {
		b.logger.Error("queue redial gave up", "attempts", b.redials.Load(), "error", err)
	}
}

// Channel returns the current channel.
func (b *Broker) Channel() *amqp.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ch
}

// Connected reports whether the underlying connection is open.
func (b *Broker) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil && !b.conn.IsClosed()
}

// Redials counts reconnection attempts since Dial.
func (b *Broker) Redials() int64 { return b.redials.Load() }

// Close stops redialing and closes the connection.
func (b *Broker) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.ch != nil {
		errs = append(errs, ignoreClosed(b.ch.Close()))
	}
	if b.conn != nil {
		errs = append(errs, ignoreClosed(b.conn.Close()))
	}
	b.ch, b.conn = nil, nil
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

// PublishJSON publishes data as a persistent JSON message on queue.
func (b *Broker) PublishJSON(ctx context.Context, queue string, data any, opts ...PublishOption) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := b.Channel()
	if ch == nil {
		return ErrNotConnected
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	for _, opt := range opts {
		opt(&msg)
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, msg)
}

// redactURL masks the password of an AMQP URL for logging
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) > 20 {
			return raw[:20] + "..."
		}
		return raw
	}
	return u.Redacted()
}
