package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/embedding"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/vectorstore"
)

// IndexService mirrors resolved tickets and knowledge-base documents into
// the vector store so future incidents can retrieve them.
type IndexService struct {
	embedder   *embedding.Provider
	tickets    vectorstore.Store
	documents  vectorstore.Store
	ticketRepo repository.TicketRepository
	docRepo    repository.DocumentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IndexDependencies bundles collaborators for the index service.
type IndexDependencies struct {
	Embedder      *embedding.Provider
	TicketStore   vectorstore.Store
	DocumentStore vectorstore.Store
	TicketRepo    repository.TicketRepository
	DocumentRepo  repository.DocumentRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewIndexService constructs the service.
func NewIndexService(deps IndexDependencies) *IndexService {
	return &IndexService{
		embedder:   deps.Embedder,
		tickets:    deps.TicketStore,
		documents:  deps.DocumentStore,
		ticketRepo: deps.TicketRepo,
		docRepo:    deps.DocumentRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// RegisterHandlers subscribes to the events that require reindexing.
func (s *IndexService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketResolved, s.handleTicketResolved)
	s.dispatcher.Subscribe(events.EventDocumentAdded, s.handleDocumentAdded)
	s.dispatcher.Subscribe(events.EventDocumentDeleted, s.handleDocumentDeleted)
}

func (s *IndexService) handleTicketResolved(ctx context.Context, event events.Event) error {
	ticket, err := s.ticketRepo.GetByID(ctx, event.SubjectID)
	if err != nil {
		return err
	}
	return s.IndexTicket(ctx, ticket)
}

func (s *IndexService) handleDocumentAdded(ctx context.Context, event events.Event) error {
	doc, err := s.docRepo.GetByID(ctx, event.SubjectID)
	if err != nil {
		return err
	}
	return s.IndexDocument(ctx, doc)
}

func (s *IndexService) handleDocumentDeleted(ctx context.Context, event events.Event) error {
	return s.RemoveDocument(ctx, event.SubjectID)
}

// IndexTicket embeds the ticket text and upserts it into the ticket class.
func (s *IndexService) IndexTicket(ctx context.Context, ticket *domain.Ticket) error {
	vector, err := s.embedder.Embed(ctx, TicketEmbeddingText(ticket))
	if err != nil {
		return err
	}
	payload := map[string]any{
		"ticket_id":      ticket.ExternalKey,
		"title":          ticket.Title,
		"description":    ticket.Description,
		"category":       ticket.Category,
		"severity":       string(ticket.Severity),
		"application":    ticket.Application,
		"environment":    string(ticket.Environment),
		"affected_users": ticket.AffectedUsers,
		"status":         string(ticket.Status),
		"reasoning":      deref(ticket.Reasoning),
		"solution":       deref(ticket.Solution),
	}
	if err := s.tickets.Upsert(ctx, ticket.ID, vector, payload); err != nil {
		return err
	}
	s.logger.Info("indexed ticket", zap.String("ticket_id", ticket.ID), zap.String("external_key", ticket.ExternalKey))
	return nil
}

// RemoveTicket drops the ticket from the vector store.
func (s *IndexService) RemoveTicket(ctx context.Context, id string) error {
	return s.tickets.Delete(ctx, id)
}

// IndexDocument embeds the document and upserts it into the document class.
func (s *IndexService) IndexDocument(ctx context.Context, doc *domain.Document) error {
	vector, err := s.embedder.Embed(ctx, doc.Title+" "+doc.Content)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"title":   doc.Title,
		"content": doc.Content,
		"source":  doc.Source,
	}
	if err := s.documents.Upsert(ctx, doc.ID, vector, payload); err != nil {
		return err
	}
	s.logger.Info("indexed document", zap.String("document_id", doc.ID))
	return nil
}

// RemoveDocument drops the document from the vector store.
func (s *IndexService) RemoveDocument(ctx context.Context, id string) error {
	return s.documents.Delete(ctx, id)
}

// TicketEmbeddingText is the canonical text embedded for a ticket: title,
// description, and solution when present, matching what queries search for.
func TicketEmbeddingText(ticket *domain.Ticket) string {
	parts := []string{ticket.Title, ticket.Description}
	if ticket.Solution != nil && *ticket.Solution != "" {
		parts = append(parts, *ticket.Solution)
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
