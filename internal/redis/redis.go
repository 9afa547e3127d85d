package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys
const (
	ReportKey   = "haca:report"
	KnownKey    = "haca:issues:known"
	EntitiesKey = "haca:entities"
)

// EntityDocsKey is the set of documents referencing an entity
func EntityDocsKey(entityID string) string {
	return fmt.Sprintf("entity:%s:docs", entityID)
}

// NewRedisClient creates a Redis client
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Cache mirrors scan results into Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a client. The report expires after ttl; zero keeps it.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Client returns the underlying client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// StoreReport saves the latest report JSON
func (c *Cache) StoreReport(ctx context.Context, report []byte) error {
	return c.client.Set(ctx, ReportKey, report, c.ttl).Err()
}

// Report returns the cached report, or nil when there is none
func (c *Cache) Report(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, ReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// KnownSignatures returns the issue signatures of the previous scan
func (c *Cache) KnownSignatures(ctx context.Context) (map[string]bool, error) {
	members, err := c.client.SMembers(ctx, KnownKey).Result()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m] = true
	}
	return known, nil
}

// ReplaceKnownSignatures swaps the known set in one transaction
func (c *Cache) ReplaceKnownSignatures(ctx context.Context, signatures []string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, KnownKey)
		if len(signatures) > 0 {
			pipe.SAdd(ctx, KnownKey, toArgs(signatures)...)
		}
		return nil
	})
	return err
}

// IndexReferences replaces the entity to documents mirror. Sets of
// entities no longer referenced are removed.
func (c *Cache) IndexReferences(ctx context.Context, refs map[string][]string) error {
	previous, err := c.client.SMembers(ctx, EntitiesKey).Result()
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range previous {
			pipe.Del(ctx, EntityDocsKey(id))
		}
		pipe.Del(ctx, EntitiesKey)
		for id, docs := range refs {
			if len(docs) == 0 {
				continue
			}
			pipe.SAdd(ctx, EntityDocsKey(id), toArgs(docs)...)
			pipe.SAdd(ctx, EntitiesKey, id)
		}
		return nil
	})
	return err
}

// DocumentsFor returns the documents referencing an entity
func (c *Cache) DocumentsFor(ctx context.Context, entityID string) ([]string, error) {
	return c.client.SMembers(ctx, EntityDocsKey(entityID)).Result()
}

// Close closes the client
func (c *Cache) Close() error {
	return c.client.Close()
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
