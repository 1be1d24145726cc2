package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"assessment-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// MeritListLoader recomputes a merit list from the result store.
type MeritListLoader interface {
	LoadMeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error)
}

// MeritListCache caches ranked merit lists with TTL to avoid re-ranking on
// every read. Invalidate drops the entry when a result is written.
type MeritListCache struct {
	loader MeritListLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedList
}

type cachedList struct {
	entries   []domain.MeritListEntry
	expiresAt time.Time
}

func NewMeritListCache(loader MeritListLoader, ttl time.Duration) *MeritListCache {
	return &MeritListCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedList),
	}
}

func (c *MeritListCache) MeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[assessmentID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.entries, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(assessmentID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[assessmentID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.entries, nil
		}
		c.mu.RUnlock()

		entries, err := c.loader.LoadMeritList(ctx, assessmentID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[assessmentID] = cachedList{
			entries:   entries,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.MeritListEntry), nil
}

func (c *MeritListCache) Invalidate(_ context.Context, assessmentID string) error {
	c.mu.Lock()
	delete(c.cache, assessmentID)
	c.mu.Unlock()
	return nil
}

func (c *MeritListCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
