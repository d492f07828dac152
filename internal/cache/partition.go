package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"fixam/internal/config"
	"fixam/internal/models"

	"github.com/redis/go-redis/v9"
)

// Partition names; the full redis key space is cache:{partition}:{version}:{url}.
const (
	PartitionStatic = "static"
	PartitionAPI    = "api"
	PartitionImage  = "image"
)

// NewRedisClient creates a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisPartition is one named, versioned store of cached responses.
type RedisPartition struct {
	client    *redis.Client
	partition string
	version   string
}

func NewRedisPartition(client *redis.Client, partition, version string) *RedisPartition {
	return &RedisPartition{client: client, partition: partition, version: version}
}

// Name returns the versioned partition name, e.g. cache:api:v3.
func (p *RedisPartition) Name() string {
	return fmt.Sprintf("cache:%s:%s", p.partition, p.version)
}

func (p *RedisPartition) key(urlKey string) string {
	return p.Name() + ":" + urlKey
}

func (p *RedisPartition) Get(ctx context.Context, key string) (*models.CachedResponse, error) {
	val, err := p.client.Get(ctx, p.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached response: %w", err)
	}

	var resp models.CachedResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached response: %w", err)
	}
	return &resp, nil
}

func (p *RedisPartition) Put(ctx context.Context, key string, resp *models.CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal cached response: %w", err)
	}
	// No TTL: entries live until version rotation or an explicit clear.
	if err := p.client.Set(ctx, p.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store cached response: %w", err)
	}
	return nil
}

// Clear removes every entry in this partition.
func (p *RedisPartition) Clear(ctx context.Context) error {
	return deleteByPrefix(ctx, p.client, p.Name()+":")
}

// CleanupVersions deletes every cache key that belongs to a partition whose
// name is not in keep. Activation of a new version calls this to invalidate
// whole partitions instead of expiring entries one by one.
func CleanupVersions(ctx context.Context, client *redis.Client, keep []string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	deleted := 0
	iter := client.Scan(ctx, 0, "cache:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := keepSet[partitionOf(key)]; ok {
			continue
		}
		if err := client.Del(ctx, key).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete stale cache key: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return deleted, nil
}

// partitionOf extracts cache:{partition}:{version} from a full key.
func partitionOf(key string) string {
	// Keys look like cache:api:v3:https://host/path — cut after the third colon.
	count := 0
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			count++
			if count == 3 {
				return key[:i]
			}
		}
	}
	return key
}

func deleteByPrefix(ctx context.Context, client *redis.Client, prefix string) error {
	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return nil
}
