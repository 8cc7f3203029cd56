package gencache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NoReference is the slot value used when a selection has no reference photo.
const NoReference = "none"

// NormalizeTheme trims and case-folds a theme so "Streetwear " and
// "streetwear" produce the same fingerprint.
func NormalizeTheme(theme string) string {
	return strings.ToLower(strings.TrimSpace(theme))
}

// Fingerprint derives the stable cache key for one outfit selection. It is
// a pure function of its inputs: the same selection hashes identically on
// every call and across restarts.
func Fingerprint(refID, topID, bottomID, theme string) string {
	if strings.TrimSpace(refID) == "" {
		refID = NoReference
	}

	normalized := refID + "|" + topID + "|" + bottomID + "|" + NormalizeTheme(theme)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
