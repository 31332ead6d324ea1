package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pulseprep/backend/internal/learning"
	"github.com/pulseprep/backend/internal/logger"
)

// ProfileCache stores computed weakness profiles keyed by user. Entries are
// advisory: a miss or a stale read only costs a recompute.
type ProfileCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*learning.WeaknessProfile, bool, error)
	Set(ctx context.Context, userID uuid.UUID, profile *learning.WeaknessProfile) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
	Close() error
}

type profileCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewProfileCache connects to the Redis named by REDIS_ADDR. Callers gate on
// that variable being set; a missing address is an error here.
func NewProfileCache(log *logger.Logger, ttl time.Duration) (ProfileCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &profileCache{
		log: log.With("service", "RedisProfileCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func cacheKey(userID uuid.UUID) string {
	return "weakness:" + userID.String()
}

func (c *profileCache) Get(ctx context.Context, userID uuid.UUID) (*learning.WeaknessProfile, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var profile learning.WeaknessProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next
		// Set.
		c.log.Warn("Dropping undecodable cached profile", "user_id", userID, "error", err)
		return nil, false, nil
	}
	return &profile, true, nil
}

func (c *profileCache) Set(ctx context.Context, userID uuid.UUID, profile *learning.WeaknessProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *profileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.rdb.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *profileCache) Close() error {
	return c.rdb.Close()
}
