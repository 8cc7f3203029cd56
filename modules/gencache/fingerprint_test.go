package gencache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterminism(t *testing.T) {
	first := Fingerprint("ref-1", "top-1", "bottom-1", "streetwear")
	second := Fingerprint("ref-1", "top-1", "bottom-1", "streetwear")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // sha256 hex
}

func TestFingerprintThemeNormalization(t *testing.T) {
	base := Fingerprint("ref-1", "top-1", "bottom-1", "streetwear")

	assert.Equal(t, base, Fingerprint("ref-1", "top-1", "bottom-1", "Streetwear "))
	assert.Equal(t, base, Fingerprint("ref-1", "top-1", "bottom-1", "  STREETWEAR"))
	assert.NotEqual(t, base, Fingerprint("ref-1", "top-1", "bottom-1", "street wear"))
}

func TestFingerprintDistinguishesSelections(t *testing.T) {
	base := Fingerprint("ref-1", "top-1", "bottom-1", "casual")

	assert.NotEqual(t, base, Fingerprint("ref-2", "top-1", "bottom-1", "casual"))
	assert.NotEqual(t, base, Fingerprint("ref-1", "top-2", "bottom-1", "casual"))
	assert.NotEqual(t, base, Fingerprint("ref-1", "top-1", "bottom-2", "casual"))
	assert.NotEqual(t, base, Fingerprint("ref-1", "top-1", "bottom-1", "formal"))
}

func TestFingerprintMissingReference(t *testing.T) {
	// Empty and explicit "none" occupy the same slot.
	assert.Equal(t,
		Fingerprint("", "top-1", "bottom-1", "casual"),
		Fingerprint(NoReference, "top-1", "bottom-1", "casual"))
}
