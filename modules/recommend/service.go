package recommend

import (
	"context"
	"fmt"
	"strings"

	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/gencache"
	"outfit-studio-server/modules/wardrobe"
)

// Pick is the selected outfit pair.
type Pick struct {
	TopID    string `json:"top_id"`
	BottomID string `json:"bottom_id"`
}

// Service picks an outfit for a free-text theme by tag overlap against the
// current wardrobe. It reads the store directly and never touches the cache.
type Service struct {
	store wardrobe.Store
}

func NewService(store wardrobe.Store) *Service {
	return &Service{store: store}
}

func (s *Service) AutoPick(ctx context.Context, theme string) (*Pick, error) {
	tops, err := s.store.ListItems(ctx, wardrobe.KindTop)
	if err != nil {
		return nil, err
	}
	bottoms, err := s.store.ListItems(ctx, wardrobe.KindBottom)
	if err != nil {
		return nil, err
	}
	return AutoPick(theme, tops, bottoms)
}

// AutoPick scores every candidate by how many of its tags appear in the
// theme's word set and picks the best top and bottom independently. Ties go
// to the earliest uploaded item; when nothing matches at all, the first item
// of each kind is used so a non-empty wardrobe always yields a pick.
func AutoPick(theme string, tops, bottoms []wardrobe.WardrobeItem) (*Pick, error) {
	if len(tops) == 0 {
		return nil, fmt.Errorf("%w: no tops in wardrobe", fault.ErrNoCandidates)
	}
	if len(bottoms) == 0 {
		return nil, fmt.Errorf("%w: no bottoms in wardrobe", fault.ErrNoCandidates)
	}

	words := themeWords(theme)
	return &Pick{
		TopID:    bestMatch(words, tops).ID,
		BottomID: bestMatch(words, bottoms).ID,
	}, nil
}

func themeWords(theme string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(gencache.NormalizeTheme(theme)) {
		words[word] = true
	}
	return words
}

func bestMatch(words map[string]bool, items []wardrobe.WardrobeItem) *wardrobe.WardrobeItem {
	best := 0
	bestScore := 0
	for i := range items {
		score := 0
		for _, tag := range items[i].Tags {
			if words[strings.ToLower(strings.TrimSpace(tag))] {
				score++
			}
		}
		// Strictly greater keeps the earliest item on ties.
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return &items[best]
}
