package wardrobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"outfit-studio-server/modules/common/config"
	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/common/imageutil"
)

const (
	itemsTable = "outfit_items"
	refsTable  = "outfit_refs"
)

// SupabaseStore keeps metadata rows in Supabase tables and image bytes in
// Supabase Storage. Used by hosted deployments; the file store covers
// everything else.
type SupabaseStore struct {
	supabase *supabase.Client
	cfg      *config.Config
}

func NewSupabaseStore(cfg *config.Config) (*SupabaseStore, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Println("✅ Supabase wardrobe store initialized")
	return &SupabaseStore{supabase: client, cfg: cfg}, nil
}

// uploadToStorage pushes image bytes to Supabase Storage over the REST API
// and returns the storage path.
func (s *SupabaseStore) uploadToStorage(ctx context.Context, subdir, filename string, data []byte) (string, error) {
	name := uuid.New().String() + imageutil.NormalizeExt(filename)
	filePath := fmt.Sprintf("%s/%s", subdir, name)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/outfits/%s", s.cfg.SupabaseURL, filePath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: create upload request: %v", fault.ErrStorageFault, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", imageutil.MimeTypeForFile(name))

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload image: %v", fault.ErrStorageFault, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: upload failed with status %d: %s", fault.ErrStorageFault, resp.StatusCode, string(body))
	}

	log.Printf("📤 Uploaded image to storage: %s (%d bytes)", filePath, len(data))
	return filePath, nil
}

// deleteFromStorage removes an uploaded blob. Best effort, like the file
// store's os.Remove: the row is already gone, an orphaned blob only wastes
// space.
func (s *SupabaseStore) deleteFromStorage(ctx context.Context, filePath string) {
	deleteURL := fmt.Sprintf("%s/storage/v1/object/outfits/%s", s.cfg.SupabaseURL, filePath)

	req, err := http.NewRequestWithContext(ctx, "DELETE", deleteURL, nil)
	if err != nil {
		log.Printf("⚠️  Failed to build storage delete for %s: %v", filePath, err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("⚠️  Failed to delete storage object %s: %v", filePath, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		log.Printf("⚠️  Storage delete for %s returned status %d", filePath, resp.StatusCode)
		return
	}
	log.Printf("🗑️ Deleted storage object: %s", filePath)
}

// downloadFromStorage fetches image bytes back from the public storage URL.
func (s *SupabaseStore) downloadFromStorage(filePath string) ([]byte, error) {
	fullURL := s.cfg.SupabaseStorageBaseURL + filePath
	log.Printf("📥 Downloading image from: %s", fullURL)

	httpResp, err := http.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("%w: download image: %v", fault.ErrStorageFault, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("%w: download failed with status %d: %s", fault.ErrStorageFault, httpResp.StatusCode, string(body))
	}

	imageData, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read image data: %v", fault.ErrStorageFault, err)
	}
	return imageData, nil
}

func (s *SupabaseStore) AddItem(ctx context.Context, kind, filename string, data []byte, tags []string) (*WardrobeItem, error) {
	filePath, err := s.uploadToStorage(ctx, "clothes", filename, data)
	if err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []string{}
	}
	item := WardrobeItem{
		ID:        uuid.New().String(),
		Kind:      kind,
		FileName:  filePath,
		Tags:      tags,
		URL:       s.cfg.SupabaseStorageBaseURL + filePath,
		CreatedAt: time.Now().UTC(),
	}

	_, _, err = s.supabase.From(itemsTable).Insert(item, false, "", "", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: insert item row: %v", fault.ErrStorageFault, err)
	}
	return &item, nil
}

func (s *SupabaseStore) AddReference(ctx context.Context, filename string, data []byte) (*ReferencePhoto, error) {
	filePath, err := s.uploadToStorage(ctx, "user", filename, data)
	if err != nil {
		return nil, err
	}

	ref := ReferencePhoto{
		ID:        uuid.New().String(),
		FileName:  filePath,
		URL:       s.cfg.SupabaseStorageBaseURL + filePath,
		CreatedAt: time.Now().UTC(),
	}

	_, _, err = s.supabase.From(refsTable).Insert(ref, false, "", "", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: insert reference row: %v", fault.ErrStorageFault, err)
	}
	return &ref, nil
}

func (s *SupabaseStore) ListItems(_ context.Context, kind string) ([]WardrobeItem, error) {
	query := s.supabase.From(itemsTable).Select("*", "exact", false)
	if kind != "" {
		query = query.Eq("kind", kind)
	}
	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: query items: %v", fault.ErrStorageFault, err)
	}

	var items []WardrobeItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: parse items: %v", fault.ErrStorageFault, err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (s *SupabaseStore) ListReferences(_ context.Context) ([]ReferencePhoto, error) {
	data, _, err := s.supabase.From(refsTable).Select("*", "exact", false).Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: query references: %v", fault.ErrStorageFault, err)
	}

	var refs []ReferencePhoto
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("%w: parse references: %v", fault.ErrStorageFault, err)
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].CreatedAt.Before(refs[j].CreatedAt) })
	return refs, nil
}

func (s *SupabaseStore) GetItem(_ context.Context, id string) (*WardrobeItem, error) {
	data, _, err := s.supabase.From(itemsTable).Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: query item: %v", fault.ErrStorageFault, err)
	}

	var items []WardrobeItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: parse item: %v", fault.ErrStorageFault, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: item %s", fault.ErrNotFound, id)
	}
	return &items[0], nil
}

func (s *SupabaseStore) GetReference(_ context.Context, id string) (*ReferencePhoto, error) {
	data, _, err := s.supabase.From(refsTable).Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: query reference: %v", fault.ErrStorageFault, err)
	}

	var refs []ReferencePhoto
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("%w: parse reference: %v", fault.ErrStorageFault, err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: reference %s", fault.ErrNotFound, id)
	}
	return &refs[0], nil
}

func (s *SupabaseStore) DeleteItem(ctx context.Context, id string) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if _, _, err := s.supabase.From(itemsTable).Delete("", "").Eq("id", id).Execute(); err != nil {
		return fmt.Errorf("%w: delete item row: %v", fault.ErrStorageFault, err)
	}
	s.deleteFromStorage(ctx, item.FileName)
	return nil
}

func (s *SupabaseStore) DeleteReference(ctx context.Context, id string) error {
	ref, err := s.GetReference(ctx, id)
	if err != nil {
		return err
	}
	if _, _, err := s.supabase.From(refsTable).Delete("", "").Eq("id", id).Execute(); err != nil {
		return fmt.Errorf("%w: delete reference row: %v", fault.ErrStorageFault, err)
	}
	s.deleteFromStorage(ctx, ref.FileName)
	return nil
}

func (s *SupabaseStore) ReadItemFile(_ context.Context, item *WardrobeItem) ([]byte, error) {
	return s.downloadFromStorage(item.FileName)
}

func (s *SupabaseStore) ReadReferenceFile(_ context.Context, ref *ReferencePhoto) ([]byte, error) {
	return s.downloadFromStorage(ref.FileName)
}
