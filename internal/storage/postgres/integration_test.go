//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/storage/postgres"
)

// setupPostgres starts a PostgreSQL container and returns a migrated DB.
func setupPostgres(t *testing.T) (*postgres.DB, func()) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("solvehelper"),
		tcpostgres.WithUsername("solve"),
		tcpostgres.WithPassword("solve"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		testcontainers.TerminateContainer(container)
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := postgres.Open(ctx, url)
	if err != nil {
		testcontainers.TerminateContainer(container)
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		testcontainers.TerminateContainer(container)
		t.Fatalf("Migrate() error = %v", err)
	}

	cleanup := func() {
		db.Close()
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return db, cleanup
}

func newUser(t *testing.T, ctx context.Context, users *postgres.UserStore, email string) *domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.User{
		ID:              uuid.New(),
		Email:           email,
		PasswordHash:    "hash",
		DailyTokenQuota: domain.DefaultDailyTokenQuota,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u
}

func TestIntegration_Postgres(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	users := postgres.NewUserStore(db)
	problems := postgres.NewProblemStore(db)
	contests := postgres.NewContestStore(db)
	chats := postgres.NewChatStore(db)
	practice := postgres.NewPracticeStore(db)
	solved := postgres.NewSolvedStore(db)
	progress := postgres.NewProgressStore(db)

	t.Run("migrate is idempotent", func(t *testing.T) {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("second Migrate() error = %v", err)
		}
		v, err := db.Version(ctx)
		if err != nil || v != 1 {
			t.Errorf("Version() = %d, %v; want 1", v, err)
		}
	})

	alice := newUser(t, ctx, users, "alice@example.com")
	bob := newUser(t, ctx, users, "bob@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		dup := *alice
		dup.ID = uuid.New()
		if err := users.Create(ctx, &dup); !errors.Is(err, domain.ErrUserAlreadyExists) {
			t.Errorf("Create() duplicate err = %v", err)
		}
	})

	t.Run("problem upsert keeps statement", func(t *testing.T) {
		d := 800
		if err := problems.UpsertProblems(ctx, []domain.Problem{
			{ID: "abc300_a", ContestID: "abc300", Index: "A", Title: "N-choice", Slug: "n-choice", Difficulty: &d},
			{ID: "abc300_b", ContestID: "abc300", Index: "B", Title: "Skip", Slug: "skip"},
		}); err != nil {
			t.Fatalf("UpsertProblems() error = %v", err)
		}
		if err := problems.UpsertStatements(ctx, []domain.Problem{{
			ID: "abc300_a", Title: "N-choice", Statement: "find A+B",
			Samples: []domain.Sample{{Input: "1 2\n", Output: "3\n"}},
		}}); err != nil {
			t.Fatalf("UpsertStatements() error = %v", err)
		}
		if err := problems.UpsertProblems(ctx, []domain.Problem{
			{ID: "abc300_a", ContestID: "abc300", Index: "A", Title: "N-choice question", Slug: "n-choice-question"},
		}); err != nil {
			t.Fatalf("UpsertProblems() again error = %v", err)
		}

		p, err := problems.Get(ctx, "abc300_a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p.Statement != "find A+B" || len(p.Samples) != 1 || p.Title != "N-choice question" {
			t.Errorf("problem = %+v", p)
		}
		if p.Difficulty == nil || *p.Difficulty != 800 {
			t.Errorf("difficulty lost: %v", p.Difficulty)
		}

		missing, err := problems.List(ctx, domain.ProblemFilter{MissingOnly: true})
		if err != nil || len(missing) != 1 || missing[0].ID != "abc300_b" {
			t.Errorf("List(MissingOnly) = %+v, %v", missing, err)
		}

		if _, err := problems.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get(missing) err = %v", err)
		}
	})

	t.Run("contests", func(t *testing.T) {
		if err := contests.UpsertContests(ctx, []domain.Contest{{ID: "abc300", Title: "ABC 300", StartAt: time.Now(), Duration: time.Hour}}); err != nil {
			t.Fatalf("UpsertContests() error = %v", err)
		}
		if err := contests.UpsertContestProblems(ctx, []domain.ContestProblem{{ContestID: "abc300", ProblemID: "abc300_a", Index: "A"}}); err != nil {
			t.Fatalf("UpsertContestProblems() error = %v", err)
		}
		list, err := contests.Problems(ctx, "abc300")
		if err != nil || len(list) != 1 {
			t.Errorf("Problems() = %+v, %v", list, err)
		}
	})

	t.Run("chat ownership", func(t *testing.T) {
		now := time.Now().UTC()
		c := &domain.ChatSession{ID: uuid.New(), UserID: alice.ID, Title: "dp", CreatedAt: now, UpdatedAt: now}
		c.Append(domain.ChatRoleUser, "hello", now)
		if err := chats.Save(ctx, c); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if _, err := chats.Get(ctx, bob.ID, c.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get() by other user err = %v", err)
		}
		stolen := *c
		stolen.UserID = bob.ID
		if err := chats.Save(ctx, &stolen); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("Save() by other user err = %v", err)
		}
		if err := chats.Delete(ctx, bob.ID, c.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Delete() by other user err = %v", err)
		}

		got, err := chats.Get(ctx, alice.ID, c.ID)
		if err != nil || len(got.Messages) != 1 {
			t.Errorf("Get() = %+v, %v", got, err)
		}
	})

	t.Run("solved records are unique", func(t *testing.T) {
		sp := domain.SolvedProblem{UserID: alice.ID, ProblemID: "abc300_a", SolvedAt: time.Now()}
		first, err := solved.Record(ctx, sp)
		if err != nil || !first {
			t.Fatalf("Record() = %v, %v", first, err)
		}
		second, err := solved.Record(ctx, sp)
		if err != nil || second {
			t.Errorf("second Record() = %v, %v; want false", second, err)
		}
		n, err := solved.RecordMany(ctx, []domain.SolvedProblem{sp, {UserID: alice.ID, ProblemID: "abc300_b", SolvedAt: time.Now()}})
		if err != nil || n != 1 {
			t.Errorf("RecordMany() = %d, %v; want 1", n, err)
		}
		list, _ := solved.List(ctx, alice.ID)
		if len(list) != 2 {
			t.Errorf("List() len = %d; want 2", len(list))
		}

		unsolved, err := problems.Unsolved(ctx, alice.ID, 0, 4000, 900, 10)
		if err != nil || len(unsolved) != 0 {
			t.Errorf("Unsolved() = %+v, %v", unsolved, err)
		}
	})

	t.Run("practice", func(t *testing.T) {
		p := domain.NewPracticeSession(alice.ID, "abc300_a", 30*time.Minute)
		if err := practice.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		p.Tick(10 * time.Minute)
		if err := practice.Update(ctx, p); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := practice.Get(ctx, alice.ID, p.ID)
		if err != nil || got.Elapsed != 10*time.Minute {
			t.Errorf("Get() = %+v, %v", got, err)
		}
		if _, err := practice.Get(ctx, bob.ID, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get() by other user err = %v", err)
		}
	})

	t.Run("ratings dedupe", func(t *testing.T) {
		at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		samples := []domain.RatingSample{
			{UserID: alice.ID, Rating: 1200, ContestID: "abc300", TakenAt: at},
			{UserID: alice.ID, Rating: 1300, ContestID: "abc301", TakenAt: at.Add(24 * time.Hour)},
		}
		n, err := progress.AddRatings(ctx, samples)
		if err != nil || n != 2 {
			t.Fatalf("AddRatings() = %d, %v", n, err)
		}
		n, err = progress.AddRatings(ctx, samples)
		if err != nil || n != 0 {
			t.Errorf("AddRatings() again = %d, %v; want 0", n, err)
		}
	})

	t.Run("daily usage", func(t *testing.T) {
		now := time.Now().UTC()
		for _, tokens := range []int{100, 250} {
			if err := progress.RecordUsage(ctx, domain.TokenUsage{UserID: alice.ID, Kind: domain.UsageHint, Tokens: tokens, TakenAt: now}); err != nil {
				t.Fatalf("RecordUsage() error = %v", err)
			}
		}
		days, err := progress.DailyUsage(ctx, alice.ID, now.Add(-time.Hour))
		if err != nil || len(days) != 1 || days[0].Tokens != 350 {
			t.Errorf("DailyUsage() = %+v, %v", days, err)
		}
	})
}
