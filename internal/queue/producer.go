package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes hint jobs and their results
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// NewHintJob creates a job for one problem
func NewHintJob(problemID string) *HintJob {
	return &HintJob{
		ID:        uuid.New(),
		ProblemID: problemID,
		CreatedAt: time.Now(),
	}
}

// PublishHintJob enqueues a hint generation job
func (p *Producer) PublishHintJob(ctx context.Context, job *HintJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, HintQueueName, job); err != nil {
		return fmt.Errorf("failed to publish hint job: %w", err)
	}

	slog.Debug("published hint job", "job_id", job.ID, "problem_id", job.ProblemID)
	return nil
}

// PublishResult publishes a job result to the results queue
func (p *Producer) PublishResult(ctx context.Context, result *HintResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, ResultQueueName, result); err != nil {
		return fmt.Errorf("failed to publish hint result: %w", err)
	}

	slog.Info("published hint result",
		"job_id", result.JobID,
		"problem_id", result.ProblemID,
		"status", result.Status,
		"duration", result.Duration,
	)
	return nil
}
