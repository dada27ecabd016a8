package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRepository(t *testing.T) (*RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	repo := NewRateLimitRepository(client, SlidingWindowConfig{
		KeyPrefix: "tempo:rate-limit",
		TTL:       2 * time.Minute,
	})
	return repo, server
}

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	repo, server := newTestRepository(t)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "login:203.0.113.7", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "login:203.0.113.7", time.Minute, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	if !server.Exists("tempo:rate-limit:login:203.0.113.7") {
		t.Fatal("expected attempts under the prefixed key")
	}

	ttl := server.TTL("tempo:rate-limit:login:203.0.113.7")
	if ttl <= 0 {
		t.Fatalf("expected a positive ttl, got %v", ttl)
	}
}

func TestRateLimitRepository_TrimWindow(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	now := time.Now()
	stale := now.Add(-2 * time.Minute)
	if err := repo.RecordAttempt(ctx, "login:203.0.113.7", stale); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "login:203.0.113.7", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := repo.TrimWindow(ctx, "login:203.0.113.7", time.Minute, now); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "login:203.0.113.7", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 after trimming", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	now := time.Now()

	_, found, err := repo.OldestAttempt(ctx, "login:203.0.113.7", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if found {
		t.Fatal("expected no attempt in an empty window")
	}

	first := now.Add(-30 * time.Second)
	if err := repo.RecordAttempt(ctx, "login:203.0.113.7", first); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "login:203.0.113.7", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	oldest, found, err := repo.OldestAttempt(ctx, "login:203.0.113.7", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !found {
		t.Fatal("expected an attempt inside the window")
	}
	if oldest.UnixNano() != first.UnixNano() {
		t.Fatalf("oldest = %v, want %v", oldest, first)
	}
}

func TestRateLimitRepository_WindowValidation(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.CountAttempts(ctx, "login:203.0.113.7", 0, time.Now()); err == nil {
		t.Error("expected rejection of a non-positive window")
	}
	if err := repo.TrimWindow(ctx, "login:203.0.113.7", -time.Second, time.Now()); err == nil {
		t.Error("expected rejection of a negative window")
	}
}
