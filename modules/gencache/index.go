package gencache

import (
	"context"
	"log"
	"time"

	"outfit-studio-server/modules/common/config"
)

const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
)

// CacheEntry records one finished generation for a fingerprint. At most one
// entry exists per fingerprint at any time.
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	ArtifactRef string    `json:"artifact_ref"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index is the durable fingerprint → CacheEntry mapping.
//
// Put enforces the non-clobber rule: a success entry is never replaced by a
// later fallback write for the same fingerprint (the existing entry is
// returned instead), while a fallback entry may be superseded by a later
// success. Readers never observe a partially written entry.
type Index interface {
	Lookup(ctx context.Context, fingerprint string) (*CacheEntry, bool, error)
	Put(ctx context.Context, fingerprint, artifactRef, status string) (*CacheEntry, error)
	Invalidate(ctx context.Context, fingerprint string) error
}

// supersedes decides whether a new status may replace an existing entry.
func supersedes(existing, incoming string) bool {
	return !(existing == StatusSuccess && incoming == StatusFallback)
}

// NewIndex builds the cache index selected by CACHE_BACKEND.
func NewIndex(cfg *config.Config) (Index, error) {
	switch cfg.CacheBackend {
	case "redis":
		log.Println("🗃️  Cache index backend: redis")
		return NewRedisIndex(cfg)
	default:
		log.Printf("🗃️  Cache index backend: file (%s)", cfg.StorageDir)
		return NewFileIndex(cfg.StorageDir)
	}
}
