package memory

import (
	"context"
	"sync"
)

// StaticAccessChecker is an in-memory stand-in for the external
// purchase/access service.
type StaticAccessChecker struct {
	mu     sync.RWMutex
	grants map[string]struct{}
}

func NewStaticAccessChecker() *StaticAccessChecker {
	return &StaticAccessChecker{grants: make(map[string]struct{})}
}

// Grant records a purchase for (user, assessment).
func (c *StaticAccessChecker) Grant(userID, assessmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants[userID+"/"+assessmentID] = struct{}{}
}

func (c *StaticAccessChecker) HasAccess(_ context.Context, userID, assessmentID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.grants[userID+"/"+assessmentID]
	return ok, nil
}
