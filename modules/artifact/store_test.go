package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGeneratedIsContentAddressed(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "png")
	require.NoError(t, err)

	const fp = "0a1b2c3d"
	ref, err := store.SaveGenerated(fp, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, URLPrefix+fp+".png", ref)

	// A second save for the same fingerprint keeps the original bytes.
	again, err := store.SaveGenerated(fp, []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	data, err := os.ReadFile(filepath.Join(dir, "outputs", fp+".png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestSaveFallbackUsesFreshIDs(t *testing.T) {
	store, err := NewStore(t.TempDir(), "png")
	require.NoError(t, err)

	a, err := store.SaveFallback([]byte("placeholder"))
	require.NoError(t, err)
	b, err := store.SaveFallback([]byte("placeholder"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, store.Exists(a))
	assert.True(t, store.Exists(b))
}

func TestExists(t *testing.T) {
	store, err := NewStore(t.TempDir(), "png")
	require.NoError(t, err)

	ref, err := store.SaveGenerated("deadbeef", []byte("x"))
	require.NoError(t, err)

	assert.True(t, store.Exists(ref))
	assert.False(t, store.Exists(URLPrefix+"missing.png"))
	assert.False(t, store.Exists("/elsewhere/deadbeef.png"))
	assert.False(t, store.Exists(URLPrefix))
	assert.False(t, store.Exists(URLPrefix+"../wardrobe.json"))
}

func TestWebPFormatFallsBackToPNGOnBadInput(t *testing.T) {
	store, err := NewStore(t.TempDir(), "webp")
	require.NoError(t, err)

	// Not a decodable PNG, so the conversion fails and the raw bytes are
	// kept under a .png name.
	ref, err := store.SaveGenerated("cafebabe", []byte("not-a-png"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"))
	assert.True(t, store.Exists(ref))
}
