package gencache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"outfit-studio-server/modules/common/fault"
)

const indexFile = "cache_index.json"

// FileIndex keeps the fingerprint mapping in memory, snapshotted to a JSON
// file through a temp-file rename on every write. Reads hold a read lock,
// so no caller ever sees a half-applied Put.
type FileIndex struct {
	mu      sync.RWMutex
	path    string
	entries map[string]CacheEntry
}

func NewFileIndex(storageDir string) (*FileIndex, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage dir: %v", fault.ErrStorageFault, err)
	}

	idx := &FileIndex{
		path:    filepath.Join(storageDir, indexFile),
		entries: make(map[string]CacheEntry),
	}

	raw, err := os.ReadFile(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("%w: read cache index: %v", fault.ErrStorageFault, err)
	}
	if err := json.Unmarshal(raw, &idx.entries); err != nil {
		// A corrupt index only costs regeneration, never a wrong answer.
		idx.entries = make(map[string]CacheEntry)
	}
	return idx, nil
}

// save persists the snapshot. Callers hold idx.mu.
func (idx *FileIndex) save() error {
	raw, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode cache index: %v", fault.ErrStorageFault, err)
	}

	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write cache index: %v", fault.ErrStorageFault, err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		return fmt.Errorf("%w: commit cache index: %v", fault.ErrStorageFault, err)
	}
	return nil
}

func (idx *FileIndex) Lookup(_ context.Context, fingerprint string) (*CacheEntry, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, ok := idx.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (idx *FileIndex) Put(_ context.Context, fingerprint, artifactRef, status string) (*CacheEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	prior, hadPrior := idx.entries[fingerprint]
	if hadPrior && !supersedes(prior.Status, status) {
		return &prior, nil
	}

	entry := CacheEntry{
		Fingerprint: fingerprint,
		ArtifactRef: artifactRef,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	idx.entries[fingerprint] = entry
	if err := idx.save(); err != nil {
		if hadPrior {
			idx.entries[fingerprint] = prior
		} else {
			delete(idx.entries, fingerprint)
		}
		return nil, err
	}
	return &entry, nil
}

func (idx *FileIndex) Invalidate(_ context.Context, fingerprint string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.entries[fingerprint]; !ok {
		return nil
	}
	delete(idx.entries, fingerprint)
	return idx.save()
}
