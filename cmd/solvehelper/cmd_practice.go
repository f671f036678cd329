package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/client"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/storage/sqlite"
)

// problemCacheTTL bounds how long problem metadata is reused offline.
const problemCacheTTL = 7 * 24 * time.Hour

// cmdPractice runs a practice countdown for one problem
func cmdPractice(args []string) error {
	minutes, rest, err := intFlag(args, "--minutes", -1)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: solvehelper practice <problem> [--minutes M]")
	}
	problemID := rest[0]

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir, err := config.EnsureHomeDir()
	if err != nil {
		return err
	}
	if minutes < 0 {
		minutes = cfg.Practice.DefaultMinutes
	}
	schedule := domain.HintSchedule{Thresholds: cfg.Practice.Thresholds}

	db, err := sqlite.Open(cfg.PracticeDBPath(dir))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate practice database: %w", err)
	}
	store := sqlite.NewTimerStore(db)

	timer, err := loadTimer(store, problemID, time.Duration(minutes)*time.Minute)
	if err != nil {
		return err
	}

	problems := sqlite.NewProblemCache(db, problemCacheTTL)
	if _, err := problems.Prune(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ prune problem cache: %v\n", err)
	}

	var api practiceAPI
	c := client.New(cfg.Server.URL, cfg.Token)
	if c.HasToken() {
		api = c
	} else {
		fmt.Println("Not logged in; running offline.")
	}
	if p := lookupProblem(c, problems, problemID); p != nil {
		fmt.Printf("%s  %s", p.ID, p.Title)
		if p.Difficulty != nil {
			fmt.Printf("  (%d, %s)", *p.Difficulty, domain.RatingColor(*p.Difficulty))
		}
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	return newCountdown(timer, store, api, schedule, os.Stdout).run(ctx, ticker.C)
}

// loadTimer resumes an unfinished timer for the problem or starts a new one.
func loadTimer(store *sqlite.TimerStore, problemID string, limit time.Duration) (*sqlite.Timer, error) {
	t, err := store.Get(problemID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, err
	case t.Finished() || t.Status == domain.PracticeExpired:
		fmt.Println("Previous run finished; starting a new one.")
	default:
		t.Resume()
		fmt.Printf("Resuming at %s elapsed.\n", formatClock(t.Elapsed))
		return t, nil
	}

	p := domain.NewPracticeSession(uuid.Nil, problemID, limit)
	p.ID = uuid.Nil
	return &sqlite.Timer{PracticeSession: p}, nil
}

// lookupProblem fetches problem metadata from the server, falling back to
// the local cache when offline.
func lookupProblem(c *client.Client, cache *sqlite.ProblemCache, id string) *domain.Problem {
	if c.HasToken() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if p, err := c.Problem(ctx, id); err == nil {
			if err := cache.Put(p); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ cache problem: %v\n", err)
			}
			return p
		}
	}
	p, err := cache.Get(id)
	if err != nil {
		return nil
	}
	return p
}
