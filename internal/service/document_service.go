package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/embedding"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/vectorstore"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// DocumentMatch is one semantic search hit over the document class.
type DocumentMatch struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity_score"`
}

// DocumentService manages knowledge-base documents and their semantic
// search surface.
type DocumentService struct {
	docs       repository.DocumentRepository
	embedder   *embedding.Provider
	store      vectorstore.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// DocumentDependencies bundles collaborators for the document service.
type DocumentDependencies struct {
	DocumentRepo repository.DocumentRepository
	Embedder     *embedding.Provider
	Store        vectorstore.Store
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// DocumentCreateInput describes document creation payload.
type DocumentCreateInput struct {
	Title   string
	Content string
	Source  string
}

// NewDocumentService constructs the service.
func NewDocumentService(deps DocumentDependencies) *DocumentService {
	return &DocumentService{
		docs:       deps.DocumentRepo,
		embedder:   deps.Embedder,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create persists a document and publishes the event that triggers indexing.
func (s *DocumentService) Create(ctx context.Context, input DocumentCreateInput) (*domain.Document, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, apperrors.NewValidationError("title and content required", nil)
	}

	doc := &domain.Document{Title: title, Content: content, Source: strings.TrimSpace(input.Source)}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDocumentAdded,
			SubjectID: doc.ID,
			Payload:   events.DocumentAddedPayload{Title: doc.Title},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed", zap.Error(err))
		}
	}
	return doc, nil
}

// Get returns a document by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// List returns documents, newest first.
func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	return s.docs.List(ctx, limit, offset)
}

// Delete removes a document and publishes the event that evicts it from
// the vector store.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDocumentDeleted,
			SubjectID: id,
			Payload:   events.DocumentDeletedPayload{Title: doc.Title},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed", zap.Error(err))
		}
	}
	return nil
}

// Search runs an ungated semantic search over the document class.
func (s *DocumentService) Search(ctx context.Context, query string, limit int) ([]DocumentMatch, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.Query(ctx, vector, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	matches := make([]DocumentMatch, 0, len(hits))
	for _, hit := range hits {
		similarity := 1 - hit.Distance
		if similarity < 0 {
			similarity = 0
		}
		if similarity > 1 {
			similarity = 1
		}
		matches = append(matches, DocumentMatch{
			DocumentID: hit.ID,
			Title:      payloadString(hit.Payload, "title"),
			Content:    payloadString(hit.Payload, "content"),
			Source:     payloadString(hit.Payload, "source"),
			Similarity: similarity,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].DocumentID < matches[j].DocumentID
	})
	return matches, nil
}
