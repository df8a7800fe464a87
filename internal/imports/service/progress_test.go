package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisProgressStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisProgressStore(client)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing job, got ok=%v err=%v", ok, err)
	}

	progress := Progress{JobID: "job-1", Status: StatusRunning, Total: 10, Processed: 4, Created: 3, Updated: 1, Success: 4}
	if err := store.Save(ctx, progress); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, ok, err := store.Get(ctx, "job-1")
	if err != nil || !ok {
		t.Fatalf("expected stored job, got ok=%v err=%v", ok, err)
	}
	if got.Processed != 4 || got.Created != 3 || got.Status != StatusRunning {
		t.Fatalf("unexpected progress: %+v", got)
	}

	if ttl := mr.TTL(redisProgressPrefix + "job-1"); ttl != redisProgressTTL {
		t.Fatalf("expected ttl %s, got %s", redisProgressTTL, ttl)
	}
}

func TestMemoryProgressStoreCopiesFailures(t *testing.T) {
	store := NewMemoryProgressStore()
	failures := []RecordFailure{{Row: 1, Message: "x"}}

	_ = store.Save(context.Background(), Progress{JobID: "a", Failures: failures})
	failures[0].Message = "mutated"

	got, _, _ := store.Get(context.Background(), "a")
	if got.Failures[0].Message != "x" {
		t.Fatal("expected stored snapshot to be isolated from caller slices")
	}
}
