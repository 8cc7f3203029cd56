package generate

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"outfit-studio-server/modules/common/config"
	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/common/gemini"
)

// GeminiProvider renders try-on images through the Gemini image model.
type GeminiProvider struct {
	apiKeys []string
	model   string
}

func NewGeminiProvider(cfg *config.Config) *GeminiProvider {
	return &GeminiProvider{
		apiKeys: cfg.GeminiAPIKeys,
		model:   cfg.GeminiModel,
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, req *ProviderRequest) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(BuildPrompt(req.Theme, req.Reference != nil)),
	}
	if req.Reference != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Reference.Data, req.Reference.MimeType))
	}
	parts = append(parts,
		genai.NewPartFromBytes(req.Top.Data, req.Top.MimeType),
		genai.NewPartFromBytes(req.Bottom.Data, req.Bottom.MimeType),
	)

	log.Printf("🎨 [Gemini] Calling model %s (%d input images)", p.model, len(parts)-1)

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		p.apiKeys,
		p.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: "3:4",
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrProviderFailure, err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ [Gemini] Received image: %d bytes", len(part.InlineData.Data))
				return part.InlineData.Data, nil
			}
		}
	}

	// Sometimes only text comes back.
	return nil, fmt.Errorf("%w: no image data in response", fault.ErrProviderFailure)
}
