package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfit-studio-server/modules/artifact"
	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/gencache"
	"outfit-studio-server/modules/wardrobe"
)

// stubProvider counts calls and serves scripted outcomes.
type stubProvider struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	errs  []error // error for call N; calls beyond the script succeed
}

func (p *stubProvider) Generate(ctx context.Context, req *ProviderRequest) ([]byte, error) {
	p.mu.Lock()
	call := p.calls
	p.calls++
	var err error
	if call < len(p.errs) {
		err = p.errs[call]
	}
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if err != nil {
		return nil, err
	}
	return []byte("generated-png-bytes"), nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixture struct {
	service   *Service
	store     wardrobe.Store
	artifacts *artifact.Store
	index     gencache.Index
	provider  *stubProvider
	dir       string

	refID    string
	topID    string
	bottomID string
}

func newFixture(t *testing.T, provider *stubProvider) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := wardrobe.NewFileStore(dir)
	require.NoError(t, err)
	artifacts, err := artifact.NewStore(dir, "png")
	require.NoError(t, err)
	index, err := gencache.NewFileIndex(dir)
	require.NoError(t, err)

	ref, err := store.AddReference(ctx, "me.png", []byte("ref-bytes"))
	require.NoError(t, err)
	top, err := store.AddItem(ctx, wardrobe.KindTop, "top.png", []byte("top-bytes"), []string{"summer"})
	require.NoError(t, err)
	bottom, err := store.AddItem(ctx, wardrobe.KindBottom, "bottom.jpg", []byte("bottom-bytes"), []string{"denim"})
	require.NoError(t, err)

	return &fixture{
		service:   NewService(store, artifacts, index, provider, nil, 5*time.Second),
		store:     store,
		artifacts: artifacts,
		index:     index,
		provider:  provider,
		dir:       dir,
		refID:     ref.ID,
		topID:     top.ID,
		bottomID:  bottom.ID,
	}
}

func (f *fixture) request(theme string) *GenerateRequest {
	return &GenerateRequest{RefID: f.refID, TopID: f.topID, BottomID: f.bottomID, Theme: theme}
}

func TestGenerateIdempotence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{})

	first, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, gencache.StatusSuccess, first.Status)
	assert.Equal(t, 1, f.provider.callCount())

	second, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, gencache.StatusSuccess, second.Status)
	assert.Equal(t, first.ArtifactRef, second.ArtifactRef)
	assert.Equal(t, 1, f.provider.callCount(), "second call must not reach the provider")
}

func TestGenerateThemeNormalizationSharesCacheEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{})

	first, err := f.service.Generate(ctx, f.request("Streetwear "))
	require.NoError(t, err)
	second, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.ArtifactRef, second.ArtifactRef)
	assert.Equal(t, 1, f.provider.callCount())
}

func TestGenerateSingleFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{delay: 30 * time.Millisecond})

	const callers = 8
	var wg sync.WaitGroup
	var uncached int64
	results := make([]*GenerateResult, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.Generate(ctx, f.request("cozy winter"))
			require.NoError(t, err)
			if !result.Cached {
				atomic.AddInt64(&uncached, 1)
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.provider.callCount(), "identical concurrent selections must share one provider call")
	assert.Equal(t, int64(1), uncached, "exactly one caller performs the generation")
	for _, result := range results {
		assert.Equal(t, results[0].ArtifactRef, result.ArtifactRef)
		assert.Equal(t, gencache.StatusSuccess, result.Status)
	}
}

func TestGenerateDifferentFingerprintsRunConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{delay: 40 * time.Millisecond})

	themes := []string{"alpha", "bravo", "charlie", "delta"}
	start := time.Now()
	var wg sync.WaitGroup
	for _, theme := range themes {
		wg.Add(1)
		go func(theme string) {
			defer wg.Done()
			_, err := f.service.Generate(ctx, f.request(theme))
			require.NoError(t, err)
		}(theme)
	}
	wg.Wait()

	assert.Equal(t, len(themes), f.provider.callCount())
	// Serialized calls would take at least 4x the stub delay.
	assert.Less(t, time.Since(start), 120*time.Millisecond,
		"unrelated fingerprints must not queue behind each other")
}

func TestGenerateFallbackOnProviderFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{errs: []error{errors.New("429: quota exceeded")}})

	result, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err, "provider failure must not fail the request")
	assert.False(t, result.Cached)
	assert.Equal(t, gencache.StatusFallback, result.Status)
	assert.NotEmpty(t, result.ArtifactRef)

	// The degraded result is cached like any other.
	again, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, gencache.StatusFallback, again.Status)
	assert.Equal(t, 1, f.provider.callCount())
}

func TestGenerateFallbackRecovery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{errs: []error{errors.New("transport error")}})

	degraded, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.Equal(t, gencache.StatusFallback, degraded.Status)

	require.NoError(t, f.service.Invalidate(ctx, degraded.Fingerprint))

	recovered, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.False(t, recovered.Cached)
	assert.Equal(t, gencache.StatusSuccess, recovered.Status)
	assert.NotEqual(t, degraded.ArtifactRef, recovered.ArtifactRef)

	entry, ok, err := f.index.Lookup(ctx, degraded.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gencache.StatusSuccess, entry.Status)
}

func TestGenerateInvalidSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{})

	cases := []struct {
		name string
		req  *GenerateRequest
	}{
		{"missing top", &GenerateRequest{TopID: "missing", BottomID: f.bottomID, Theme: "x"}},
		{"missing bottom", &GenerateRequest{TopID: f.topID, BottomID: "missing", Theme: "x"}},
		{"wrong kind for top", &GenerateRequest{TopID: f.bottomID, BottomID: f.bottomID, Theme: "x"}},
		{"wrong kind for bottom", &GenerateRequest{TopID: f.topID, BottomID: f.topID, Theme: "x"}},
		{"missing reference", &GenerateRequest{RefID: "missing", TopID: f.topID, BottomID: f.bottomID, Theme: "x"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Generate(ctx, tc.req)
			assert.ErrorIs(t, err, fault.ErrInvalidSelection)
		})
	}

	assert.Equal(t, 0, f.provider.callCount(), "invalid selections must not reach the provider")

	fp := gencache.Fingerprint(gencache.NoReference, "missing", f.bottomID, "x")
	_, ok, err := f.index.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok, "invalid selections must not write cache entries")
}

func TestGenerateDeletionIndependence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{})

	result, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	require.Equal(t, gencache.StatusSuccess, result.Status)

	require.NoError(t, f.store.DeleteItem(ctx, f.topID))

	// The cache entry and its artifact survive the deletion.
	entry, ok, err := f.index.Lookup(ctx, result.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.ArtifactRef, entry.ArtifactRef)

	// A fresh request for the deleted item is rejected before the cache.
	_, err = f.service.Generate(ctx, f.request("streetwear"))
	assert.ErrorIs(t, err, fault.ErrInvalidSelection)
	assert.Equal(t, 1, f.provider.callCount())
}

func TestGenerateStaleSuccessEntryYieldsToFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{errs: []error{nil, errors.New("provider down")}})

	first, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	require.Equal(t, gencache.StatusSuccess, first.Status)

	// Lose the artifact behind the cached success entry.
	name := strings.TrimPrefix(first.ArtifactRef, artifact.URLPrefix)
	require.NoError(t, os.Remove(filepath.Join(f.dir, "outputs", name)))

	// Regeneration fails, so the result must be a usable fallback, not the
	// stale success entry pointing at a missing file.
	second, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.Equal(t, gencache.StatusFallback, second.Status)
	assert.False(t, second.Cached)
	assert.NotEqual(t, first.ArtifactRef, second.ArtifactRef)
	assert.True(t, f.artifacts.Exists(second.ArtifactRef))

	entry, ok, err := f.index.Lookup(ctx, first.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gencache.StatusFallback, entry.Status)
	assert.Equal(t, second.ArtifactRef, entry.ArtifactRef)
}

// hangupSensitiveIndex fails operations once the supplied context is
// canceled, the way a network-backed index does.
type hangupSensitiveIndex struct {
	inner gencache.Index
}

func (i hangupSensitiveIndex) Lookup(ctx context.Context, fingerprint string) (*gencache.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return i.inner.Lookup(ctx, fingerprint)
}

func (i hangupSensitiveIndex) Put(ctx context.Context, fingerprint, artifactRef, status string) (*gencache.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return i.inner.Put(ctx, fingerprint, artifactRef, status)
}

func (i hangupSensitiveIndex) Invalidate(ctx context.Context, fingerprint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.inner.Invalidate(ctx, fingerprint)
}

func TestGenerateCachesResultWhenCallerHangsUp(t *testing.T) {
	f := newFixture(t, &stubProvider{delay: 50 * time.Millisecond})
	f.service.index = hangupSensitiveIndex{inner: f.index}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	// The caller hangs up while the provider is working; the finished
	// result must still reach the cache.
	result, err := f.service.Generate(ctx, f.request("streetwear"))
	require.NoError(t, err)
	assert.Equal(t, gencache.StatusSuccess, result.Status)

	again, err := f.service.Generate(context.Background(), f.request("streetwear"))
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, result.ArtifactRef, again.ArtifactRef)
	assert.Equal(t, 1, f.provider.callCount(), "a cached result must not be regenerated")
}

func TestGenerateWithoutReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{})

	noRef := &GenerateRequest{TopID: f.topID, BottomID: f.bottomID, Theme: "casual"}
	bare, err := f.service.Generate(ctx, noRef)
	require.NoError(t, err)
	assert.Equal(t, gencache.StatusSuccess, bare.Status)

	withRef, err := f.service.Generate(ctx, f.request("casual"))
	require.NoError(t, err)
	assert.False(t, withRef.Cached, "reference presence must change the fingerprint")
	assert.NotEqual(t, bare.Fingerprint, withRef.Fingerprint)
	assert.Equal(t, 2, f.provider.callCount())
}
