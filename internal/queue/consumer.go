package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobHandler generates hints for a job and returns how many were stored
type JobHandler func(ctx context.Context, job *HintJob) (int, error)

// Consumer consumes hint jobs from the queue
type Consumer struct {
	conn       *Connection
	handler    JobHandler
	publish    func(ctx context.Context, result *HintResult) error
	retryable  func(error) bool
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers    int           // concurrent workers
	Prefetch   int           // unacked deliveries per channel
	JobTimeout time.Duration // per job
	// Retryable marks errors whose job is requeued once instead of failed.
	Retryable func(error) bool
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:    2,
		Prefetch:   1,
		JobTimeout: 2 * time.Minute,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return false }
	}
	return cfg
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler JobHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		conn:      conn,
		handler:   handler,
		publish:   NewProducer(conn).PublishResult,
		retryable: cfg.Retryable,
		workers:   cfg.Workers,
		prefetch:  cfg.Prefetch,
		timeout:   cfg.JobTimeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		HintQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting hint queue consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("worker stopping", "worker_id", id)
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage runs one job, publishes its result and settles the
// delivery. Retryable failures are requeued once.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	var job HintJob
	if err := json.Unmarshal(msg.Body, &job); err != nil || job.ProblemID == "" {
		slog.Error("dropping malformed hint job", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, c.timeout)
	n, err := c.handler(jobCtx, &job)
	timedOut := errors.Is(jobCtx.Err(), context.DeadlineExceeded)
	cancel()

	result := &HintResult{
		JobID:       job.ID,
		ProblemID:   job.ProblemID,
		Status:      StatusCompleted,
		Hints:       n,
		Duration:    time.Since(start),
		CompletedAt: time.Now(),
	}

	if err != nil {
		if c.retryable(err) && !msg.Redelivered && ctx.Err() == nil {
			slog.Warn("requeueing hint job", "worker_id", workerID, "job_id", job.ID, "error", err)
			_ = msg.Nack(false, true)
			return
		}
		result.Status = StatusFailed
		result.Error = err.Error()
		if timedOut {
			result.Status = StatusTimeout
			result.Error = "hint generation timed out"
		}
		slog.Error("hint job failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"problem_id", job.ProblemID,
			"error", err,
		)
	}

	if err := c.publish(ctx, result); err != nil {
		slog.Error("failed to publish result", "worker_id", workerID, "job_id", job.ID, "error", err)
	}
	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message", "worker_id", workerID, "job_id", job.ID, "error", err)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}

// ResultHandler handles a result for a specific job
type ResultHandler func(result *HintResult)

// ResultConsumer routes hint results to per-job subscribers
type ResultConsumer struct {
	conn       *Connection
	handlers   map[string]ResultHandler
	handlersMu sync.RWMutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewResultConsumer creates a result consumer
func NewResultConsumer(conn *Connection) *ResultConsumer {
	return &ResultConsumer{
		conn:     conn,
		handlers: make(map[string]ResultHandler),
	}
}

// Subscribe registers a handler for results of a specific job
func (rc *ResultConsumer) Subscribe(jobID string, handler ResultHandler) {
	rc.handlersMu.Lock()
	defer rc.handlersMu.Unlock()
	rc.handlers[jobID] = handler
}

// Unsubscribe removes a handler
func (rc *ResultConsumer) Unsubscribe(jobID string) {
	rc.handlersMu.Lock()
	defer rc.handlersMu.Unlock()
	delete(rc.handlers, jobID)
}

// Start begins consuming results
func (rc *ResultConsumer) Start(ctx context.Context) error {
	ctx, rc.cancelFunc = context.WithCancel(ctx)

	msgs, err := rc.conn.Channel().Consume(
		ResultQueueName,
		"",
		true, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start result consumer: %w", err)
	}

	rc.wg.Add(1)
	go rc.consume(ctx, msgs)
	return nil
}

func (rc *ResultConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer rc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			rc.dispatch(msg.Body)
		}
	}
}

func (rc *ResultConsumer) dispatch(body []byte) {
	var result HintResult
	if err := json.Unmarshal(body, &result); err != nil {
		slog.Error("failed to unmarshal result", "error", err)
		return
	}

	rc.handlersMu.RLock()
	handler, ok := rc.handlers[result.JobID.String()]
	rc.handlersMu.RUnlock()

	if ok {
		handler(&result)
	}
}

// Stop stops the result consumer
func (rc *ResultConsumer) Stop() {
	if rc.cancelFunc != nil {
		rc.cancelFunc()
	}
	rc.wg.Wait()
}
