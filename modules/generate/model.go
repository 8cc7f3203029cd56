package generate

import "context"

// GenerateRequest is one outfit selection. The reference photo is optional;
// top and bottom must resolve to live wardrobe items of the right kind.
type GenerateRequest struct {
	RefID    string `json:"ref_id,omitempty"`
	TopID    string `json:"top_id"`
	BottomID string `json:"bottom_id"`
	Theme    string `json:"theme"`
}

// GenerateResult is what callers get back. Status distinguishes a genuine
// generation from a degraded placeholder; Cached marks an index hit. Callers
// never have to inspect file contents to tell these apart.
type GenerateResult struct {
	ArtifactRef string `json:"artifact_ref"`
	Status      string `json:"status"`
	Cached      bool   `json:"cached"`
	Fingerprint string `json:"fingerprint"`
}

// ProviderImage is one input image handed to the provider.
type ProviderImage struct {
	Data     []byte
	MimeType string
}

// ProviderRequest carries the resolved selection to the provider.
type ProviderRequest struct {
	Reference *ProviderImage // nil when the selection has no reference photo
	Top       ProviderImage
	Bottom    ProviderImage
	Theme     string
}

// Provider is the external image-generation collaborator. Implementations
// return PNG bytes or an error; which model runs behind it is configuration.
type Provider interface {
	Generate(ctx context.Context, req *ProviderRequest) ([]byte, error)
}

// Publisher receives generation lifecycle events. A nil publisher is valid.
type Publisher interface {
	Publish(eventType string, payload map[string]interface{})
}
