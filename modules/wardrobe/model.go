package wardrobe

import "time"

const (
	KindTop    = "top"
	KindBottom = "bottom"
)

// ValidKind reports whether kind is one of the accepted clothing kinds.
func ValidKind(kind string) bool {
	return kind == KindTop || kind == KindBottom
}

// WardrobeItem is one uploaded clothing image. IDs are immutable and never
// reused, even after deletion.
type WardrobeItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	FileName  string    `json:"filename"`
	Tags      []string  `json:"tags"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// ReferencePhoto is one uploaded identity reference photo.
type ReferencePhoto struct {
	ID        string    `json:"id"`
	FileName  string    `json:"filename"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
