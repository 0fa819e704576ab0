package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

const (
	listKeyPrefix = "designs:user:" // cached list result: designs:user:{user_id}
	listTTL       = 5 * time.Minute
)

// ListCache is a read-through cache for per-user design lists. All
// methods are safe on a nil receiver so the service runs unchanged when
// Redis is not configured. Cache errors degrade to misses.
type ListCache struct {
	client *redis.Client
}

func NewListCache(client *redis.Client) *ListCache {
	if client == nil {
		return nil
	}
	return &ListCache{client: client}
}

func (c *ListCache) Get(ctx context.Context, userID string) ([]domain.Design, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, listKeyPrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get %s: %v", userID, err)
		}
		return nil, false
	}

	var designs []domain.Design
	if err := json.Unmarshal(data, &designs); err != nil {
		log.Printf("[cache] decode %s: %v", userID, err)
		return nil, false
	}
	return designs, true
}

func (c *ListCache) Set(ctx context.Context, userID string, designs []domain.Design) {
	if c == nil {
		return
	}

	data, err := json.Marshal(designs)
	if err != nil {
		log.Printf("[cache] encode %s: %v", userID, err)
		return
	}
	if err := c.client.Set(ctx, listKeyPrefix+userID, data, listTTL).Err(); err != nil {
		log.Printf("[cache] set %s: %v", userID, err)
	}
}

// Invalidate drops the cached list after a save or delete.
func (c *ListCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, listKeyPrefix+userID).Err(); err != nil {
		log.Printf("[cache] invalidate %s: %v", userID, err)
	}
}
