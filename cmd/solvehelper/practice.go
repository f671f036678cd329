package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/client"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/storage/sqlite"
)

const (
	syncInterval  = 30 * time.Second
	checkInterval = time.Minute
)

// practiceAPI is the server side of a practice run
type practiceAPI interface {
	StartPractice(ctx context.Context, problemID string, limit time.Duration) (*client.Session, error)
	SavePractice(ctx context.Context, id uuid.UUID, p client.Progress) (*client.Session, error)
	RevealHint(ctx context.Context, id uuid.UUID) (*client.Hint, *client.Session, error)
	Check(ctx context.Context, id uuid.UUID) (bool, *client.Session, error)
}

// timerStore persists the local timer
type timerStore interface {
	Save(t *sqlite.Timer) error
	MarkSynced(problemID string, remoteID uuid.UUID, at time.Time) error
}

// countdown drives one practice timer. Without an api it runs offline and
// only announces unlocks.
type countdown struct {
	timer    *sqlite.Timer
	store    timerStore
	api      practiceAPI
	schedule domain.HintSchedule
	out      io.Writer
	now      func() time.Time

	syncEvery  time.Duration
	checkEvery time.Duration
	sinceSync  time.Duration
	sinceCheck time.Duration
	announced  int
}

func newCountdown(t *sqlite.Timer, store timerStore, api practiceAPI, schedule domain.HintSchedule, out io.Writer) *countdown {
	c := &countdown{
		timer:      t,
		store:      store,
		api:        api,
		schedule:   schedule,
		out:        out,
		now:        time.Now,
		syncEvery:  syncInterval,
		checkEvery: checkInterval,
	}
	c.announced = max(len(t.Hints), t.HintsUsed)
	if api == nil {
		// Offline runs re-announce nothing that unlocked before a resume.
		c.announced = max(c.announced, t.UnlockedHints(schedule))
	}
	return c
}

// connect opens the server session on first run, or pulls server progress
// when resuming. A failure drops the run to offline mode.
func (c *countdown) connect(ctx context.Context) {
	if c.api == nil {
		return
	}
	if c.timer.ID == uuid.Nil {
		s, err := c.api.StartPractice(ctx, c.timer.ProblemID, c.timer.TimeLimit)
		if err != nil {
			c.offline(err)
			return
		}
		c.timer.ID = s.ID
		if err := c.store.Save(c.timer); err != nil {
			fmt.Fprintf(c.out, "⚠ save timer: %v\n", err)
		}
	}
	if err := c.sync(ctx); err != nil {
		c.offline(err)
	}
}

func (c *countdown) offline(err error) {
	fmt.Fprintf(c.out, "⚠ Server unavailable, running offline: %v\n", err)
	c.api = nil
	c.announced = max(c.announced, c.timer.UnlockedHints(c.schedule))
}

// sync reports local progress. The server keeps the larger elapsed time and
// hint count, and its answer is folded back in.
func (c *countdown) sync(ctx context.Context) error {
	s, err := c.api.SavePractice(ctx, c.timer.ID, client.Progress{
		Elapsed:   c.timer.Elapsed,
		HintsUsed: c.timer.HintsUsed,
		Paused:    c.timer.Status == domain.PracticePaused,
	})
	if err != nil {
		return err
	}
	if s.Status == domain.PracticeSolved {
		at := c.now()
		if s.SolvedAt != nil {
			at = *s.SolvedAt
		}
		c.timer.MarkSolved(at)
	} else {
		c.timer.Restore(s.Elapsed, s.HintsUsed, c.timer.Status == domain.PracticePaused, c.schedule)
	}

	now := c.now()
	c.timer.SyncedAt = &now
	if err := c.store.Save(c.timer); err != nil {
		return fmt.Errorf("save timer: %w", err)
	}
	return c.store.MarkSynced(c.timer.ProblemID, c.timer.ID, now)
}

// unlockHints reveals or announces every hint unlocked so far.
func (c *countdown) unlockHints(ctx context.Context) {
	unlocked := c.timer.UnlockedHints(c.schedule)
	if c.announced >= unlocked {
		return
	}
	if c.api == nil {
		for ; c.announced < unlocked; c.announced++ {
			fmt.Fprintf(c.out, "\n💡 Hint %d unlocked (log in to reveal it)\n", c.announced+1)
		}
		return
	}

	// The server unlocks by its own clock, so bring it up to date first.
	if err := c.sync(ctx); err != nil {
		fmt.Fprintf(c.out, "\n⚠ sync: %v\n", err)
		return
	}
	for c.announced < unlocked {
		h, s, err := c.api.RevealHint(ctx, c.timer.ID)
		if errors.Is(err, domain.ErrNoHintAvailable) {
			return
		}
		if err != nil {
			fmt.Fprintf(c.out, "\n⚠ reveal hint: %v\n", err)
			return
		}
		c.timer.Hints = append(c.timer.Hints, h.Text)
		c.timer.HintsUsed = max(c.timer.HintsUsed, s.HintsUsed)
		c.announced++
		fmt.Fprintf(c.out, "\n💡 Hint %d: %s\n", h.Index+1, h.Text)
	}
}

// step advances the timer by d and reports whether the run is over.
func (c *countdown) step(ctx context.Context, d time.Duration) (bool, error) {
	c.timer.Tick(d)
	c.unlockHints(ctx)
	if err := c.store.Save(c.timer); err != nil {
		return false, fmt.Errorf("save timer: %w", err)
	}

	if c.api != nil {
		c.sinceSync += d
		if c.sinceSync >= c.syncEvery {
			c.sinceSync = 0
			if err := c.sync(ctx); err != nil {
				fmt.Fprintf(c.out, "\n⚠ sync: %v\n", err)
			}
		}
		c.sinceCheck += d
		if c.sinceCheck >= c.checkEvery {
			c.sinceCheck = 0
			if c.check(ctx) {
				return true, nil
			}
		}
	}

	c.render()
	switch c.timer.Status {
	case domain.PracticeSolved:
		return true, nil
	case domain.PracticeExpired:
		fmt.Fprintln(c.out, "\n⏰ Time is up. A later accepted submission still counts as solved.")
		return true, nil
	}
	return false, nil
}

// check asks the server whether the problem has been accepted.
func (c *countdown) check(ctx context.Context) bool {
	solved, s, err := c.api.Check(ctx, c.timer.ID)
	if err != nil {
		fmt.Fprintf(c.out, "\n⚠ check: %v\n", err)
		return false
	}
	if !solved {
		return false
	}
	at := c.now()
	if s.SolvedAt != nil {
		at = *s.SolvedAt
	}
	c.timer.MarkSolved(at)
	if err := c.store.Save(c.timer); err != nil {
		fmt.Fprintf(c.out, "\n⚠ save timer: %v\n", err)
	}
	fmt.Fprintf(c.out, "\n✓ Accepted in %s with %d hint(s)\n", formatClock(c.timer.Elapsed), c.timer.HintsUsed)
	if s.Praise != "" {
		fmt.Fprintln(c.out, "  "+s.Praise)
	}
	return true
}

func (c *countdown) render() {
	clock := "untimed " + formatClock(c.timer.Elapsed)
	if c.timer.TimeLimit > 0 {
		clock = formatClock(c.timer.Remaining()) + " left"
	}
	line := fmt.Sprintf("\r⏱  %s  hints %d/%d", clock, c.timer.UnlockedHints(c.schedule), c.schedule.Count())
	if next, ok := c.schedule.NextUnlock(c.timer.Elapsed, c.timer.TimeLimit); ok {
		line += "  next in " + formatClock(next)
	}
	fmt.Fprint(c.out, line+"   ")
}

// run ticks until the timer ends or ctx is cancelled, then saves and syncs.
func (c *countdown) run(ctx context.Context, ticks <-chan time.Time) error {
	c.connect(ctx)
	c.unlockHints(ctx)
	c.render()

	for {
		select {
		case <-ctx.Done():
			c.timer.Pause()
			fmt.Fprintln(c.out, "\nPaused. Run the same command again to resume.")
			return c.finish()
		case <-ticks:
			done, err := c.step(ctx, time.Second)
			if err != nil {
				return err
			}
			if done {
				return c.finish()
			}
		}
	}
}

func (c *countdown) finish() error {
	if err := c.store.Save(c.timer); err != nil {
		return fmt.Errorf("save timer: %w", err)
	}
	if c.api == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.sync(ctx); err != nil {
		fmt.Fprintf(c.out, "⚠ Progress kept locally, sync failed: %v\n", err)
	}
	return nil
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
