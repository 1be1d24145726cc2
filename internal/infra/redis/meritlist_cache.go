package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"assessment-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// MeritListLoader recomputes a merit list from the result store.
type MeritListLoader interface {
	LoadMeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error)
}

// MeritListCache caches ranked merit lists in Redis as one JSON snapshot per
// assessment: SET meritlist:{assessmentID} <entries JSON> with TTL.
// The cache is never authoritative; Invalidate is called on every result
// write so a late or amended result shows up on the next read.
type MeritListCache struct {
	client *redis.Client
	loader MeritListLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewMeritListCache(client *redis.Client, loader MeritListLoader, ttl time.Duration) *MeritListCache {
	return &MeritListCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MeritListCache) MeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error) {
	key := c.key(assessmentID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if entries, ok := decodeEntries(raw); ok {
			return entries, nil
		}
	}

	result, err, _ := c.sf.Do(assessmentID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if entries, ok := decodeEntries(raw); ok {
				return entries, nil
			}
		}

		entries, err := c.loader.LoadMeritList(ctx, assessmentID)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(entries); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.MeritListEntry), nil
}

// Invalidate drops the cached snapshot for an assessment.
func (c *MeritListCache) Invalidate(ctx context.Context, assessmentID string) error {
	return c.client.Del(ctx, c.key(assessmentID)).Err()
}

func (c *MeritListCache) key(assessmentID string) string {
	return "meritlist:" + assessmentID
}

func decodeEntries(raw []byte) ([]domain.MeritListEntry, bool) {
	var entries []domain.MeritListEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *MeritListCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
