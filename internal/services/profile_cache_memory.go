package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/pulseprep/backend/internal/clients/redis"
	"github.com/pulseprep/backend/internal/learning"
)

// memoryProfileCache is the single-process fallback used when REDIS_ADDR is
// not configured. Same contract as the Redis cache: advisory, TTL-bounded,
// explicitly invalidated on new attempts.
type memoryProfileCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uuid.UUID]memoryProfileEntry
}

type memoryProfileEntry struct {
	profile   *learning.WeaknessProfile
	expiresAt time.Time
}

func NewMemoryProfileCache(ttl time.Duration) redisclient.ProfileCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &memoryProfileCache{
		ttl:     ttl,
		entries: map[uuid.UUID]memoryProfileEntry{},
	}
}

func (c *memoryProfileCache) Get(_ context.Context, userID uuid.UUID) (*learning.WeaknessProfile, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.profile, true, nil
}

func (c *memoryProfileCache) Set(_ context.Context, userID uuid.UUID, profile *learning.WeaknessProfile) error {
	c.mu.Lock()
	c.entries[userID] = memoryProfileEntry{profile: profile, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *memoryProfileCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

func (c *memoryProfileCache) Close() error { return nil }
