package redis

import (
	"context"
	"testing"
	"time"

	"assessment-engine/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingLoader struct {
	entries []domain.MeritListEntry
	calls   int
}

func (l *countingLoader) LoadMeritList(context.Context, string) ([]domain.MeritListEntry, error) {
	l.calls++
	return l.entries, nil
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestMeritListCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{entries: []domain.MeritListEntry{
		{Rank: 1, UserID: "u1", TotalScore: 9, Accuracy: 100, TimeTakenSeconds: 40},
		{Rank: 2, UserID: "u2", TotalScore: 4, Accuracy: 50, TimeTakenSeconds: 80},
	}}
	cache := NewMeritListCache(newClient(mr), loader, time.Minute)

	entries, err := cache.MeritList(context.Background(), "a1")
	if err != nil {
		t.Fatalf("merit list: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "u1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("meritlist:a1") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call hits the snapshot, loader not incremented.
	if _, err := cache.MeritList(context.Background(), "a1"); err != nil {
		t.Fatalf("merit list 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestMeritListCacheInvalidateClearsKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{}
	cache := NewMeritListCache(newClient(mr), loader, time.Minute)

	_, _ = cache.MeritList(context.Background(), "a1")
	if err := cache.Invalidate(context.Background(), "a1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("meritlist:a1") {
		t.Fatalf("expected redis key removed")
	}

	_, _ = cache.MeritList(context.Background(), "a1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, loader calls %d", loader.calls)
	}
}
