package gencache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"outfit-studio-server/modules/common/config"
	"outfit-studio-server/modules/common/fault"
)

const redisKeyPrefix = "gencache:"

// RedisIndex stores entries as JSON strings under gencache:<fingerprint>.
// SET is atomic, so readers always see a whole entry. The non-clobber check
// in Put is read-then-write; the orchestrator already serializes writers per
// fingerprint, which is what makes that safe.
type RedisIndex struct {
	rdb *redis.Client
}

func NewRedisIndex(cfg *config.Config) (*RedisIndex, error) {
	log.Printf("🔌 Connecting to Redis: %s", cfg.GetRedisAddr())

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, // managed Redis with private certs
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping failed: %v", fault.ErrStorageFault, err)
	}

	log.Println("✅ Redis connected successfully")
	return &RedisIndex{rdb: rdb}, nil
}

func (idx *RedisIndex) Lookup(ctx context.Context, fingerprint string) (*CacheEntry, bool, error) {
	raw, err := idx.rdb.Get(ctx, redisKeyPrefix+fingerprint).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis get: %v", fault.ErrStorageFault, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("%w: parse cache entry: %v", fault.ErrStorageFault, err)
	}
	return &entry, true, nil
}

func (idx *RedisIndex) Put(ctx context.Context, fingerprint, artifactRef, status string) (*CacheEntry, error) {
	if existing, ok, err := idx.Lookup(ctx, fingerprint); err != nil {
		return nil, err
	} else if ok && !supersedes(existing.Status, status) {
		return existing, nil
	}

	entry := CacheEntry{
		Fingerprint: fingerprint,
		ArtifactRef: artifactRef,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: encode cache entry: %v", fault.ErrStorageFault, err)
	}
	if err := idx.rdb.Set(ctx, redisKeyPrefix+fingerprint, raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis set: %v", fault.ErrStorageFault, err)
	}
	return &entry, nil
}

func (idx *RedisIndex) Invalidate(ctx context.Context, fingerprint string) error {
	if err := idx.rdb.Del(ctx, redisKeyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", fault.ErrStorageFault, err)
	}
	return nil
}
