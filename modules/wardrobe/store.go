package wardrobe

import (
	"context"
	"log"

	"outfit-studio-server/modules/common/config"
)

// Store is the wardrobe and reference metadata catalog. Implemented by the
// file store (dev/default) and the Supabase store (hosted deployments).
// Deleting an entry never touches the generation cache: artifacts produced
// from an item stay servable after the item is gone.
type Store interface {
	AddItem(ctx context.Context, kind, filename string, data []byte, tags []string) (*WardrobeItem, error)
	AddReference(ctx context.Context, filename string, data []byte) (*ReferencePhoto, error)

	// ListItems returns items of one kind in insertion order.
	ListItems(ctx context.Context, kind string) ([]WardrobeItem, error)
	ListReferences(ctx context.Context) ([]ReferencePhoto, error)

	GetItem(ctx context.Context, id string) (*WardrobeItem, error)
	GetReference(ctx context.Context, id string) (*ReferencePhoto, error)

	// Deletes fail with fault.ErrNotFound for unknown ids; a second delete
	// of the same id fails the same way.
	DeleteItem(ctx context.Context, id string) error
	DeleteReference(ctx context.Context, id string) error

	// File bytes for the generation provider.
	ReadItemFile(ctx context.Context, item *WardrobeItem) ([]byte, error)
	ReadReferenceFile(ctx context.Context, ref *ReferencePhoto) ([]byte, error)
}

// NewStore builds the store selected by STORE_BACKEND.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "supabase":
		log.Println("🗄️  Wardrobe store backend: supabase")
		return NewSupabaseStore(cfg)
	default:
		log.Printf("🗄️  Wardrobe store backend: file (%s)", cfg.StorageDir)
		return NewFileStore(cfg.StorageDir)
	}
}
