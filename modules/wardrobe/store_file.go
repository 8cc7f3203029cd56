package wardrobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/common/imageutil"
)

const metadataFile = "wardrobe.json"

// catalog is the on-disk metadata shape, same layout the original db kept.
type catalog struct {
	Clothes []WardrobeItem   `json:"clothes"`
	Refs    []ReferencePhoto `json:"refs"`
}

// FileStore keeps metadata in a single JSON file under the storage root and
// image bytes under clothes/ and user/. Writes go through a temp file and
// rename so readers never observe a torn catalog.
type FileStore struct {
	mu   sync.Mutex
	root string
	data catalog
}

// NewFileStore opens (or initializes) the store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{root: dir}

	for _, sub := range []string{"clothes", "user", "outputs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create storage dirs: %v", fault.ErrStorageFault, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: read catalog: %v", fault.ErrStorageFault, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// Corrupt catalog starts fresh, matching the original behavior.
		s.data = catalog{}
	}
	return s, nil
}

// save persists the catalog atomically. Callers hold s.mu.
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode catalog: %v", fault.ErrStorageFault, err)
	}

	path := filepath.Join(s.root, metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write catalog: %v", fault.ErrStorageFault, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: commit catalog: %v", fault.ErrStorageFault, err)
	}
	return nil
}

func (s *FileStore) writeUpload(subdir, filename string, data []byte) (string, error) {
	name := uuid.New().String() + imageutil.NormalizeExt(filename)
	path := filepath.Join(s.root, subdir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write upload: %v", fault.ErrStorageFault, err)
	}
	return name, nil
}

func (s *FileStore) AddItem(_ context.Context, kind, filename string, data []byte, tags []string) (*WardrobeItem, error) {
	name, err := s.writeUpload("clothes", filename, data)
	if err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []string{}
	}
	item := WardrobeItem{
		ID:        uuid.New().String(),
		Kind:      kind,
		FileName:  name,
		Tags:      tags,
		URL:       "/static/clothes/" + name,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Clothes = append(s.data.Clothes, item)
	if err := s.save(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *FileStore) AddReference(_ context.Context, filename string, data []byte) (*ReferencePhoto, error) {
	name, err := s.writeUpload("user", filename, data)
	if err != nil {
		return nil, err
	}

	ref := ReferencePhoto{
		ID:        uuid.New().String(),
		FileName:  name,
		URL:       "/static/user/" + name,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Refs = append(s.data.Refs, ref)
	if err := s.save(); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *FileStore) ListItems(_ context.Context, kind string) ([]WardrobeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]WardrobeItem, 0)
	for _, item := range s.data.Clothes {
		if kind == "" || item.Kind == kind {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *FileStore) ListReferences(_ context.Context) ([]ReferencePhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make([]ReferencePhoto, len(s.data.Refs))
	copy(refs, s.data.Refs)
	return refs, nil
}

func (s *FileStore) GetItem(_ context.Context, id string) (*WardrobeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Clothes {
		if s.data.Clothes[i].ID == id {
			item := s.data.Clothes[i]
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: item %s", fault.ErrNotFound, id)
}

func (s *FileStore) GetReference(_ context.Context, id string) (*ReferencePhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Refs {
		if s.data.Refs[i].ID == id {
			ref := s.data.Refs[i]
			return &ref, nil
		}
	}
	return nil, fmt.Errorf("%w: reference %s", fault.ErrNotFound, id)
}

func (s *FileStore) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Clothes {
		if s.data.Clothes[i].ID == id {
			name := s.data.Clothes[i].FileName
			s.data.Clothes = append(s.data.Clothes[:i], s.data.Clothes[i+1:]...)
			if err := s.save(); err != nil {
				return err
			}
			os.Remove(filepath.Join(s.root, "clothes", name))
			return nil
		}
	}
	return fmt.Errorf("%w: item %s", fault.ErrNotFound, id)
}

func (s *FileStore) DeleteReference(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Refs {
		if s.data.Refs[i].ID == id {
			name := s.data.Refs[i].FileName
			s.data.Refs = append(s.data.Refs[:i], s.data.Refs[i+1:]...)
			if err := s.save(); err != nil {
				return err
			}
			os.Remove(filepath.Join(s.root, "user", name))
			return nil
		}
	}
	return fmt.Errorf("%w: reference %s", fault.ErrNotFound, id)
}

func (s *FileStore) ReadItemFile(_ context.Context, item *WardrobeItem) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "clothes", item.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w: read item file %s: %v", fault.ErrStorageFault, item.FileName, err)
	}
	return data, nil
}

func (s *FileStore) ReadReferenceFile(_ context.Context, ref *ReferencePhoto) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "user", ref.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w: read reference file %s: %v", fault.ErrStorageFault, ref.FileName, err)
	}
	return data, nil
}
