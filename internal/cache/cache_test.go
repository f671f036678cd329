package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type model struct {
	Difficulty float64 `json:"difficulty"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", model{Difficulty: 812.5}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got model
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Difficulty != 812.5 {
		t.Errorf("Get() = %+v", got)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Get(ctx, "k", &got); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after delete err = %v; want ErrMiss", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "ttl", 1, time.Hour)
	c.Set(ctx, "forever", 2, 0)

	now = now.Add(2 * time.Hour)

	var v int
	if err := c.Get(ctx, "ttl", &v); !errors.Is(err, ErrMiss) {
		t.Errorf("expired Get() err = %v; want ErrMiss", err)
	}
	if err := c.Get(ctx, "forever", &v); err != nil || v != 2 {
		t.Errorf("Get(forever) = %d, %v", v, err)
	}
}

func TestFetch(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (map[string]int, error) {
		calls++
		return map[string]int{"abc300_a": 100}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, "models", time.Hour, load)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if got["abc300_a"] != 100 {
			t.Errorf("Fetch() = %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times; want 1", calls)
	}
}

func TestFetch_LoadError(t *testing.T) {
	c := NewMemoryCache()
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), c, "k", time.Hour, func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Fetch() err = %v; want boom", err)
	}
	var v int
	if err := c.Get(context.Background(), "k", &v); !errors.Is(err, ErrMiss) {
		t.Error("failed load must not be cached")
	}
}
