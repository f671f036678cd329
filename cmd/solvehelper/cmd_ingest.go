package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/felixgeelhaar/solvehelper/internal/api"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/daemon"
	"github.com/felixgeelhaar/solvehelper/internal/queue"
	"github.com/felixgeelhaar/solvehelper/internal/storage/postgres"
)

// hintWait bounds how long "ingest hints" waits for queued jobs.
const hintWait = 30 * time.Minute

// cmdIngest runs one ingestion stage against the server database
func cmdIngest(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: solvehelper ingest <problems|contests|statements|submissions|hints>")
	}

	start, rest, err := intFlag(args[1:], "--start", 0)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load server config: %w", err)
	}
	res, err := daemon.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer res.Close()
	app := api.NewApp(res.Infra)

	switch args[0] {
	case "problems":
		n, err := app.Pipeline.Problems(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("✓ %d problems imported\n", n)
	case "contests":
		n, err := app.Pipeline.Contests(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("✓ %d contests imported\n", n)
	case "statements":
		rep, err := app.Pipeline.Statements(ctx, start)
		fmt.Printf("Statements: %d fetched, %d written, %d skipped, %d failed\n",
			rep.Fetched, rep.Written, rep.Skipped, rep.Failed)
		if err != nil {
			fmt.Printf("Interrupted; resume with: solvehelper ingest statements --start %d\n", rep.NextIndex)
			return err
		}
	case "submissions":
		return ingestSubmissions(ctx, app, res)
	case "hints":
		return ingestHints(ctx, app, cfg)
	default:
		return fmt.Errorf("unknown ingest command: %s", args[0])
	}
	return nil
}

// ingestSubmissions syncs profile, rating history and accepted submissions
// for every user with a linked handle.
func ingestSubmissions(ctx context.Context, app *api.App, res *daemon.Resources) error {
	users, err := postgres.NewUserStore(res.DB).ListWithHandle(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, u := range users {
		synced, err := app.Progress.SyncProfile(ctx, u.ID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", u.Handle, err)
			continue
		}
		fmt.Printf("  ✓ %-16s rating %4d, %d new solved\n", u.Handle, synced.User.Rating, synced.NewSolved)
	}
	fmt.Printf("Synced %d of %d users\n", len(users)-failed, len(users))
	return nil
}

// ingestHints generates hints for problems without any. With RabbitMQ the
// jobs go to the daemon's workers; otherwise they run here one at a time.
func ingestHints(ctx context.Context, app *api.App, cfg *config.Config) error {
	pending, err := app.Pipeline.PendingHints(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("✓ Every problem with a statement has hints")
		return nil
	}

	if cfg.RabbitMQURL == "" {
		var done int
		for _, id := range pending {
			if _, err := app.Hints.GenerateForJob(ctx, id); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", id, err)
				continue
			}
			done++
			fmt.Printf("  ✓ %s\n", id)
		}
		fmt.Printf("Generated hints for %d of %d problems\n", done, len(pending))
		return nil
	}
	return queueHints(ctx, cfg.RabbitMQURL, pending)
}

func queueHints(ctx context.Context, url string, pending []string) error {
	conn, err := queue.NewConnection(url)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer conn.Close()

	results := queue.NewResultConsumer(conn)
	if err := results.Start(ctx); err != nil {
		return err
	}
	defer results.Stop()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[string]int{}
	)
	producer := queue.NewProducer(conn)
	for _, id := range pending {
		job := queue.NewHintJob(id)
		wg.Add(1)
		results.Subscribe(job.ID.String(), func(r *queue.HintResult) {
			defer wg.Done()
			results.Unsubscribe(r.JobID.String())
			mu.Lock()
			statuses[r.Status]++
			mu.Unlock()
			if r.Status != queue.StatusCompleted {
				fmt.Fprintf(os.Stderr, "  ✗ %s: %s %s\n", r.ProblemID, r.Status, r.Error)
				return
			}
			fmt.Printf("  ✓ %s (%d hints)\n", r.ProblemID, r.Hints)
		})
		if err := producer.PublishHintJob(ctx, job); err != nil {
			results.Unsubscribe(job.ID.String())
			wg.Done()
			return fmt.Errorf("queue %s: %w", id, err)
		}
	}
	fmt.Printf("Queued %d hint jobs, waiting for workers...\n", len(pending))

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(hintWait):
		return errors.New("timed out waiting for hint results; jobs stay queued")
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Printf("Completed %d, failed %d, timed out %d\n",
		statuses[queue.StatusCompleted], statuses[queue.StatusFailed], statuses[queue.StatusTimeout])
	return nil
}
