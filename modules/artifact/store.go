package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/common/imageutil"
)

// URLPrefix is where the HTTP layer serves stored outputs from.
const URLPrefix = "/static/outputs/"

// Store persists generated output images under one outputs directory.
// Generated artifacts are content-addressed by fingerprint; fallback
// artifacts get a fresh id. Files are immutable once written.
type Store struct {
	root   string // outputs directory
	format string // "png" or "webp"
}

func NewStore(storageDir, format string) (*Store, error) {
	root := filepath.Join(storageDir, "outputs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create outputs dir: %v", fault.ErrStorageFault, err)
	}
	return &Store{root: root, format: format}, nil
}

func (s *Store) write(name string, pngData []byte) (string, error) {
	data := pngData
	if s.format == "webp" {
		converted, err := imageutil.ConvertPNGToWebP(pngData, 90.0)
		if err == nil {
			data = converted
		} else {
			// Keep the PNG rather than fail the request over encoding.
			name = strings.TrimSuffix(name, ".webp") + ".png"
		}
	}

	path := filepath.Join(s.root, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write artifact: %v", fault.ErrStorageFault, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("%w: commit artifact: %v", fault.ErrStorageFault, err)
	}
	return URLPrefix + name, nil
}

// SaveGenerated stores a provider result keyed by fingerprint and returns
// its artifact reference. An existing artifact for the fingerprint is left
// untouched.
func (s *Store) SaveGenerated(fingerprint string, pngData []byte) (string, error) {
	name := fingerprint + "." + s.format
	if ref := URLPrefix + name; s.Exists(ref) {
		return ref, nil
	}
	return s.write(name, pngData)
}

// SaveFallback stores a placeholder artifact under a fresh id.
func (s *Store) SaveFallback(pngData []byte) (string, error) {
	return s.write(uuid.New().String()+"."+s.format, pngData)
}

// Exists reports whether an artifact reference still resolves to a file.
func (s *Store) Exists(ref string) bool {
	name, ok := strings.CutPrefix(ref, URLPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return false
	}
	_, err := os.Stat(filepath.Join(s.root, name))
	return err == nil
}
