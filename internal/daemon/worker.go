package daemon

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/solvehelper/internal/llm"
	"github.com/felixgeelhaar/solvehelper/internal/queue"
)

// HintGenerator generates and stores hints for one problem
type HintGenerator interface {
	GenerateForJob(ctx context.Context, problemID string) ([]string, error)
}

// HintJobHandler adapts a generator to the queue consumer.
func HintJobHandler(g HintGenerator) queue.JobHandler {
	return func(ctx context.Context, job *queue.HintJob) (int, error) {
		hints, err := g.GenerateForJob(ctx, job.ProblemID)
		if err != nil {
			return 0, err
		}
		return len(hints), nil
	}
}

// Retryable reports whether a failed hint job should be requeued.
func Retryable(err error) bool {
	return errors.Is(err, llm.ErrRateLimited)
}
