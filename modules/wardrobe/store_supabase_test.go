package wardrobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfit-studio-server/modules/common/config"
)

// fakeSupabase serves just enough of the REST surface for the store: the
// items table with a single row, and the storage object endpoints.
type fakeSupabase struct {
	mu             sync.Mutex
	storageDeletes []string
	deleteAuth     string
}

func (f *fakeSupabase) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/outfits/") && r.Method == http.MethodDelete:
			f.mu.Lock()
			f.storageDeletes = append(f.storageDeletes, strings.TrimPrefix(r.URL.Path, "/storage/v1/object/outfits/"))
			f.deleteAuth = r.Header.Get("Authorization")
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/outfit_items") && r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Range", "0-0/1")
			w.Write([]byte(`[{"id":"i1","kind":"top","filename":"clothes/abc.png","tags":[],"url":"","created_at":"2026-01-01T00:00:00Z"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/outfit_items") && r.Method == http.MethodDelete:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}
}

func TestSupabaseDeleteItemRemovesStorageObject(t *testing.T) {
	fake := &fakeSupabase{}
	ts := httptest.NewServer(fake.handler())
	defer ts.Close()

	cfg := &config.Config{SupabaseURL: ts.URL, SupabaseServiceKey: "service-key"}
	store, err := NewSupabaseStore(cfg)
	require.NoError(t, err)

	require.NoError(t, store.DeleteItem(context.Background(), "i1"))

	require.Len(t, fake.storageDeletes, 1, "row delete must be followed by the blob delete")
	assert.Equal(t, "clothes/abc.png", fake.storageDeletes[0])
	assert.Equal(t, "Bearer service-key", fake.deleteAuth)
}

func TestSupabaseDeleteFromStoragePathAndAuth(t *testing.T) {
	fake := &fakeSupabase{}
	ts := httptest.NewServer(fake.handler())
	defer ts.Close()

	cfg := &config.Config{SupabaseURL: ts.URL, SupabaseServiceKey: "service-key"}
	store, err := NewSupabaseStore(cfg)
	require.NoError(t, err)

	store.deleteFromStorage(context.Background(), "user/ref.png")

	require.Len(t, fake.storageDeletes, 1)
	assert.Equal(t, "user/ref.png", fake.storageDeletes[0])
}
