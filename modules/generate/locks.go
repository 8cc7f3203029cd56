package generate

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// LockTable hands out one exclusive lock per fingerprint so concurrent
// requests for the same selection wait on a single provider call while
// unrelated fingerprints proceed in parallel. Entries are created lazily
// under the table mutex, so two callers can never race into two distinct
// locks for one key, and are dropped once nobody holds or waits on them.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until the fingerprint lock is held and returns the release
// function. Release is idempotent and must be called on every exit path.
func (t *LockTable) Acquire(fingerprint string) func() {
	t.mu.Lock()
	entry, ok := t.locks[fingerprint]
	if !ok {
		entry = &lockEntry{}
		t.locks[fingerprint] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			t.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(t.locks, fingerprint)
			}
			t.mu.Unlock()
		})
	}
}

// Len reports how many fingerprints currently have a live lock entry.
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
