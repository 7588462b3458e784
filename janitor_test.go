package main

import (
	"context"
	"testing"
	"time"
)

func TestNewJanitor(t *testing.T) {
	if _, err := NewJanitor("not a cron", nil, nil); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
	if _, err := NewJanitor("*/10 * * * *", nil, nil); err != nil {
		t.Errorf("Valid expression rejected: %v", err)
	}
}

func TestJanitorNextRun(t *testing.T) {
	j, err := NewJanitor("*/10 * * * *", nil, nil)
	if err != nil {
		t.Fatalf("NewJanitor failed: %v", err)
	}

	ref := time.Date(2024, 1, 1, 12, 3, 20, 0, time.UTC)
	next, err := j.NextRun(ref)
	if err != nil {
		t.Fatalf("NextRun failed: %v", err)
	}
	want := time.Date(2024, 1, 1, 12, 10, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun = %v, want %v", next, want)
	}
}

func TestJanitorSweep(t *testing.T) {
	q := newTestQueue(t, testQueueOptions())
	for i := 0; i < 3; i++ {
		q.Enqueue(func(ctx context.Context) (any, error) { return i, nil }, 0, "")
	}
	waitIdle(t, q)

	now := testTime()
	cache := NewReferenceCache(time.Minute)
	cache.now = func() time.Time { return now }
	cache.Set(&ReferenceDocument{URL: "https://old.example"})
	now = now.Add(2 * time.Minute)
	cache.Set(&ReferenceDocument{URL: "https://fresh.example"})

	j, err := NewJanitor("@hourly", q, cache)
	if err != nil {
		t.Fatalf("NewJanitor failed: %v", err)
	}

	tasks, pages := j.Sweep()
	if tasks != 3 || pages != 1 {
		t.Errorf("Sweep = %d tasks, %d pages, want 3 and 1", tasks, pages)
	}
	if _, ok := cache.Get("https://fresh.example"); !ok {
		t.Error("Fresh page should survive the sweep")
	}
	if stats := q.Stats(); stats.Completed != 0 {
		t.Errorf("Completed after sweep = %d", stats.Completed)
	}

	if tasks, pages := j.Sweep(); tasks != 0 || pages != 0 {
		t.Errorf("Second sweep = %d/%d, want nothing", tasks, pages)
	}
}

func TestJanitorRunStops(t *testing.T) {
	j, err := NewJanitor("@yearly", nil, nil)
	if err != nil {
		t.Fatalf("NewJanitor failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
