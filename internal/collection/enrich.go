package collection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"collections/internal/graphflow"
	"collections/internal/models"
)

// FallbackKeywords replace model output whenever enrichment fails.
var FallbackKeywords = []string{"historical", "portrait", "sepia", "formal"}

var errKeywordsUnavailable = errors.New("keyword extractor not configured")

// EnrichWithAI tags an item with keywords derived from its title, artist and
// image. Results are cached per image URL, fallbacks included, so items that
// share an image cost one model call. An unknown id is a no-op and returns a
// nil item. Model failures never surface here; only storage errors do.
func (s *Service) EnrichWithAI(ctx context.Context, id string) (*models.CollectionItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("enrich skipped, item not found", "item_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if item.ImageURL == nil || strings.TrimSpace(*item.ImageURL) == "" {
		return item, nil
	}

	key := aiCacheKey(*item.ImageURL)
	if cached, found := s.aiCache.Get(key); found && cached != "" {
		s.logger.Debug("ai cache hit", "item_id", id, "title", item.Title)
		return s.repo.UpdateKeywords(ctx, id, cached)
	}

	keywords, err := s.extractKeywords(ctx, item)
	if err != nil {
		s.logger.Warn("ai enrichment failed, using fallback keywords", "item_id", id, "title", item.Title, "error", err)
		keywords = FallbackKeywords
	}
	joined := strings.Join(keywords, ",")
	s.aiCache.Set(key, joined)

	return s.repo.UpdateKeywords(ctx, id, joined)
}

func (s *Service) extractKeywords(ctx context.Context, item *models.CollectionItem) ([]string, error) {
	if s.keywords == nil {
		return nil, errKeywordsUnavailable
	}
	artist := ""
	if item.Artist != nil {
		artist = *item.Artist
	}
	return s.keywords.Extract(ctx, graphflow.KeywordInput{
		Title:    item.Title,
		Artist:   artist,
		ImageURL: s.absoluteURL(*item.ImageURL),
	})
}

// absoluteURL prefixes locally served paths with the public base URL so the
// remote model can fetch them.
func (s *Service) absoluteURL(ref string) string {
	if isRemote(ref) || s.publicBaseURL == "" || !strings.HasPrefix(ref, "/") {
		return ref
	}
	return strings.TrimRight(s.publicBaseURL, "/") + ref
}

func aiCacheKey(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return "ai-" + hex.EncodeToString(sum[:])
}
