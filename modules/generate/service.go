package generate

import (
	"context"
	"fmt"
	"log"
	"time"

	"outfit-studio-server/modules/artifact"
	"outfit-studio-server/modules/common/fallback"
	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/common/imageutil"
	"outfit-studio-server/modules/gencache"
	"outfit-studio-server/modules/wardrobe"
)

// Service orchestrates one generation request end to end: validate the
// selection, consult the cache index, serialize concurrent work per
// fingerprint, call the provider at most once per selection, and fall back
// to a deterministic placeholder when the provider cannot deliver.
type Service struct {
	store     wardrobe.Store
	artifacts *artifact.Store
	index     gencache.Index
	locks     *LockTable
	provider  Provider
	publisher Publisher

	providerTimeout time.Duration
}

func NewService(
	store wardrobe.Store,
	artifacts *artifact.Store,
	index gencache.Index,
	provider Provider,
	publisher Publisher,
	providerTimeout time.Duration,
) *Service {
	return &Service{
		store:           store,
		artifacts:       artifacts,
		index:           index,
		locks:           NewLockTable(),
		provider:        provider,
		publisher:       publisher,
		providerTimeout: providerTimeout,
	}
}

func (s *Service) publish(eventType string, payload map[string]interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}

// resolveSelection validates the ids and kinds of one request.
func (s *Service) resolveSelection(ctx context.Context, req *GenerateRequest) (ref *wardrobe.ReferencePhoto, top, bottom *wardrobe.WardrobeItem, err error) {
	top, err = s.store.GetItem(ctx, req.TopID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: top %q does not exist", fault.ErrInvalidSelection, req.TopID)
	}
	if top.Kind != wardrobe.KindTop {
		return nil, nil, nil, fmt.Errorf("%w: item %q is a %s, not a top", fault.ErrInvalidSelection, req.TopID, top.Kind)
	}

	bottom, err = s.store.GetItem(ctx, req.BottomID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: bottom %q does not exist", fault.ErrInvalidSelection, req.BottomID)
	}
	if bottom.Kind != wardrobe.KindBottom {
		return nil, nil, nil, fmt.Errorf("%w: item %q is a %s, not a bottom", fault.ErrInvalidSelection, req.BottomID, bottom.Kind)
	}

	if req.RefID != "" {
		ref, err = s.store.GetReference(ctx, req.RefID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: reference %q does not exist", fault.ErrInvalidSelection, req.RefID)
		}
	}
	return ref, top, bottom, nil
}

// cachedResult returns a result for a live cache entry, or nil when the
// entry's artifact has gone missing and the work must be redone.
func (s *Service) cachedResult(fingerprint string, entry *gencache.CacheEntry) *GenerateResult {
	if !s.artifacts.Exists(entry.ArtifactRef) {
		return nil
	}
	return &GenerateResult{
		ArtifactRef: entry.ArtifactRef,
		Status:      entry.Status,
		Cached:      true,
		Fingerprint: fingerprint,
	}
}

// Generate runs one selection through the cache and, on a miss, through the
// provider. Identical selections share one provider call; different
// fingerprints never block each other.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	ref, top, bottom, err := s.resolveSelection(ctx, req)
	if err != nil {
		return nil, err
	}

	refID := gencache.NoReference
	if ref != nil {
		refID = ref.ID
	}
	fingerprint := gencache.Fingerprint(refID, top.ID, bottom.ID, req.Theme)

	// Fast path: no lock needed for a hit.
	if entry, ok, err := s.index.Lookup(ctx, fingerprint); err != nil {
		return nil, err
	} else if ok {
		if result := s.cachedResult(fingerprint, entry); result != nil {
			log.Printf("⚡ [Generate] Cache hit for %s (status: %s)", shortFP(fingerprint), entry.Status)
			return result, nil
		}
		log.Printf("⚠️  [Generate] Cache entry for %s lost its artifact, regenerating", shortFP(fingerprint))
	}

	release := s.locks.Acquire(fingerprint)
	defer release()

	// Another waiter may have finished the same selection while this
	// caller was queued on the lock.
	if entry, ok, err := s.index.Lookup(ctx, fingerprint); err != nil {
		return nil, err
	} else if ok {
		if result := s.cachedResult(fingerprint, entry); result != nil {
			log.Printf("⚡ [Generate] Cache hit for %s after waiting on lock", shortFP(fingerprint))
			return result, nil
		}
		// The entry's artifact is gone. Drop the entry before regenerating
		// so a fallback outcome can replace it; otherwise a stale success
		// entry would keep winning the write-through and hand out a
		// reference that resolves to nothing.
		if err := s.index.Invalidate(ctx, fingerprint); err != nil {
			return nil, err
		}
	}

	s.publish("generation_started", map[string]interface{}{
		"fingerprint": fingerprint,
		"top_id":      top.ID,
		"bottom_id":   bottom.ID,
		"theme":       req.Theme,
	})

	result, err := s.generateLocked(ctx, fingerprint, ref, top, bottom, req.Theme)
	if err != nil {
		return nil, err
	}

	s.publish("generation_completed", map[string]interface{}{
		"fingerprint":  fingerprint,
		"artifact_ref": result.ArtifactRef,
		"status":       result.Status,
	})
	return result, nil
}

// generateLocked does the provider call and write-through. The fingerprint
// lock is held for the whole call.
func (s *Service) generateLocked(ctx context.Context, fingerprint string, ref *wardrobe.ReferencePhoto, top, bottom *wardrobe.WardrobeItem, theme string) (*GenerateResult, error) {
	providerReq, err := s.loadInputs(ctx, ref, top, bottom, theme)
	if err != nil {
		return nil, err
	}

	// The provider call runs on its own bounded context: a caller hanging
	// up must not abort work other waiters share, and an unresponsive
	// provider must not hold the fingerprint lock forever.
	providerCtx, cancel := context.WithTimeout(context.Background(), s.providerTimeout)
	defer cancel()

	startedAt := time.Now()
	pngData, err := s.provider.Generate(providerCtx, providerReq)
	if err != nil {
		log.Printf("⚠️  [Generate] Provider failed for %s after %s: %v (serving fallback)",
			shortFP(fingerprint), time.Since(startedAt).Round(time.Millisecond), err)
		return s.writeThrough(fingerprint, fallback.ArtifactBytes(gencache.NormalizeTheme(theme)), gencache.StatusFallback)
	}

	log.Printf("✅ [Generate] Provider succeeded for %s in %s (%d bytes)",
		shortFP(fingerprint), time.Since(startedAt).Round(time.Millisecond), len(pngData))
	return s.writeThrough(fingerprint, pngData, gencache.StatusSuccess)
}

// loadInputs reads the image bytes for the resolved selection.
func (s *Service) loadInputs(ctx context.Context, ref *wardrobe.ReferencePhoto, top, bottom *wardrobe.WardrobeItem, theme string) (*ProviderRequest, error) {
	topData, err := s.store.ReadItemFile(ctx, top)
	if err != nil {
		return nil, err
	}
	bottomData, err := s.store.ReadItemFile(ctx, bottom)
	if err != nil {
		return nil, err
	}

	req := &ProviderRequest{
		Top:    ProviderImage{Data: topData, MimeType: imageutil.MimeTypeForFile(top.FileName)},
		Bottom: ProviderImage{Data: bottomData, MimeType: imageutil.MimeTypeForFile(bottom.FileName)},
		Theme:  theme,
	}

	if ref != nil {
		refData, err := s.store.ReadReferenceFile(ctx, ref)
		if err != nil {
			return nil, err
		}
		req.Reference = &ProviderImage{Data: refData, MimeType: imageutil.MimeTypeForFile(ref.FileName)}
	}
	return req, nil
}

// writeThrough persists the artifact and cache entry for one outcome. The
// entry returned by Put wins: a fallback never displaces a prior success.
// It runs on its own context, like the provider call: a result the provider
// already produced must reach the cache even when the caller has hung up.
func (s *Service) writeThrough(fingerprint string, pngData []byte, status string) (*GenerateResult, error) {
	var artifactRef string
	var err error
	if status == gencache.StatusSuccess {
		artifactRef, err = s.artifacts.SaveGenerated(fingerprint, pngData)
	} else {
		artifactRef, err = s.artifacts.SaveFallback(pngData)
	}
	if err != nil {
		return nil, err
	}

	putCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry, err := s.index.Put(putCtx, fingerprint, artifactRef, status)
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		ArtifactRef: entry.ArtifactRef,
		Status:      entry.Status,
		Cached:      false,
		Fingerprint: fingerprint,
	}, nil
}

// Invalidate drops the cache entry for a fingerprint so the next request
// regenerates (the artifact itself is left in place).
func (s *Service) Invalidate(ctx context.Context, fingerprint string) error {
	return s.index.Invalidate(ctx, fingerprint)
}

func shortFP(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
