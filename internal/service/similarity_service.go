package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/embedding"
	"github.com/spec-kit/triage-service/internal/vectorstore"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// SimilarityService embeds query text and runs gated nearest-neighbor
// searches against the ticket vector store.
type SimilarityService struct {
	embedder *embedding.Provider
	store    vectorstore.Store
	logger   *zap.Logger
}

// NewSimilarityService constructs the service.
func NewSimilarityService(embedder *embedding.Provider, store vectorstore.Store, logger *zap.Logger) *SimilarityService {
	return &SimilarityService{embedder: embedder, store: store, logger: logger}
}

// FindSimilar returns up to limit matches with similarity >= minSimilarity,
// ordered by descending similarity, ties broken by ascending ticket id. An
// empty store yields an empty slice; an unreachable store yields
// StoreUnavailableError.
func (s *SimilarityService) FindSimilar(ctx context.Context, text string, limit int, minSimilarity float64) ([]domain.SimilarityMatch, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := s.store.Query(ctx, vector, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	matches := make([]domain.SimilarityMatch, 0, len(hits))
	for _, hit := range hits {
		match := matchFromHit(hit)
		if match.Similarity < minSimilarity {
			continue
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].TicketID < matches[j].TicketID
	})
	return matches, nil
}

// matchFromHit converts the store's native distance into a [0,1] similarity.
// Weaviate reports cosine distance, so similarity = 1 - distance, clamped.
func matchFromHit(hit vectorstore.Hit) domain.SimilarityMatch {
	similarity := 1 - hit.Distance
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}

	ticketID := payloadString(hit.Payload, "ticket_id")
	if ticketID == "" {
		ticketID = hit.ID
	}
	return domain.SimilarityMatch{
		TicketID:    ticketID,
		Title:       payloadString(hit.Payload, "title"),
		Description: payloadString(hit.Payload, "description"),
		Category:    payloadString(hit.Payload, "category"),
		Severity:    payloadString(hit.Payload, "severity"),
		Reasoning:   payloadString(hit.Payload, "reasoning"),
		Solution:    payloadString(hit.Payload, "solution"),
		Similarity:  similarity,
	}
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
