package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Query-embedding vectors change only when the embedding model does, so
// a generous TTL is safe.
const embeddingTTL = 24 * time.Hour

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("Connected to Redis at %s", redisURL)
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// embeddingKey digests the model and query so arbitrary user text never
// becomes a raw Redis key.
func embeddingKey(model, query string) string {
	sum := sha256.Sum256([]byte(model + ":" + query))
	return "emb:" + hex.EncodeToString(sum[:])
}

// GetEmbedding returns the cached vector for a query, or nil on miss.
func (c *RedisCache) GetEmbedding(ctx context.Context, model, query string) ([]float32, error) {
	data, err := c.client.Get(ctx, embeddingKey(model, query)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// SetEmbedding caches the vector computed for a query.
func (c *RedisCache) SetEmbedding(ctx context.Context, model, query string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, embeddingKey(model, query), data, embeddingTTL).Err()
}
