package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const catalogTTL = 5 * time.Minute

// InitRedis connects to redis using REDIS_HOST/REDIS_PORT/REDIS_PASSWORD.
func InitRedis(logger *zap.Logger) (*redis.Client, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port := getEnv("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

// Catalog is a read-through cache for the public product listing. A nil
// client disables caching.
type Catalog struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewCatalog(rdb *redis.Client, log *zap.Logger) *Catalog {
	return &Catalog{rdb: rdb, log: log}
}

func listKey(categoryID string) string {
	if categoryID == "" {
		return "catalog:products:all"
	}
	return "catalog:products:category:" + categoryID
}

// GetList returns the cached serialized product list, or nil on miss.
func (c *Catalog) GetList(ctx context.Context, categoryID string) []byte {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, listKey(categoryID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("catalog cache read failed", zap.Error(err))
		}
		return nil
	}
	return data
}

// SetList stores a serialized product list.
func (c *Catalog) SetList(ctx context.Context, categoryID string, data []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, listKey(categoryID), data, catalogTTL).Err(); err != nil {
		c.log.Warn("catalog cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached product listing. Called on admin product
// writes.
func (c *Catalog) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, "catalog:products:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warn("catalog cache invalidation failed", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("catalog cache scan failed", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
