package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// TicketService coordinates ticket workflows: submission, listing,
// resolution, and historical ingestion.
type TicketService struct {
	tickets    repository.TicketRepository
	resolution *ResolutionService
	similarity *SimilarityService
	index      *IndexService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Resolution *ResolutionService
	Similarity *SimilarityService
	Index      *IndexService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketSubmitInput describes ticket submission payload.
type TicketSubmitInput struct {
	Title         string
	Description   string
	Category      string
	Severity      domain.TicketSeverity
	Application   string
	Environment   domain.TicketEnvironment
	AffectedUsers string
}

// HistoricalTicket is one already-resolved ticket ingested straight into the
// vector store, bypassing the open-ticket lifecycle.
type HistoricalTicket struct {
	TicketID      string
	Title         string
	Description   string
	Category      string
	Severity      string
	Application   string
	Environment   string
	AffectedUsers string
	Reasoning     string
	Solution      string
}

// BatchIngestResult reports per-item outcomes of a batch ingestion.
type BatchIngestResult struct {
	Total    int
	Uploaded int
	Failed   []BatchIngestFailure
}

// BatchIngestFailure names one failed item.
type BatchIngestFailure struct {
	TicketID string
	Error    string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		resolution: deps.Resolution,
		similarity: deps.Similarity,
		index:      deps.Index,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Submit creates an open ticket. Reasoning and solution stay unset until the
// pipeline resolves it.
func (s *TicketService) Submit(ctx context.Context, input TicketSubmitInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		Title:         title,
		Description:   description,
		Category:      strings.TrimSpace(input.Category),
		Severity:      input.Severity,
		Application:   strings.TrimSpace(input.Application),
		Environment:   input.Environment,
		AffectedUsers: strings.TrimSpace(input.AffectedUsers),
		Status:        domain.TicketStatusOpen,
	}
	if ticket.Severity == "" {
		ticket.Severity = domain.TicketSeverityMedium
	}
	if !domain.ValidSeverity(ticket.Severity) {
		return nil, apperrors.NewValidationError("invalid severity", map[string]any{"severity": input.Severity})
	}
	if ticket.Environment == "" {
		ticket.Environment = domain.TicketEnvironmentProduction
	}
	if !domain.ValidEnvironment(ticket.Environment) {
		return nil, apperrors.NewValidationError("invalid environment", map[string]any{"environment": input.Environment})
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketSubmitted,
		SubjectID: ticket.ID,
		Payload: events.TicketSubmittedPayload{
			ExternalKey: ticket.ExternalKey,
			Title:       ticket.Title,
			Severity:    ticket.Severity,
		},
	})
	return ticket, nil
}

// Get returns a ticket by internal id, or by external key when the
// caller passes a TKT- reference.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	if strings.HasPrefix(id, "TKT-") {
		return s.tickets.GetByExternalKey(ctx, id)
	}
	return s.tickets.GetByID(ctx, id)
}

// SearchSimilar runs an ungated similarity search over resolved tickets.
// Unlike the resolution pipeline it applies no similarity floor, so callers
// see weak matches too.
func (s *TicketService) SearchSimilar(ctx context.Context, query string, limit int) ([]domain.SimilarityMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidationError("query required", nil)
	}
	if limit <= 0 {
		limit = 5
	}
	return s.similarity.FindSimilar(ctx, query, limit, 0)
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// Delete removes a ticket from both postgres and the vector store.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.index.RemoveTicket(ctx, id); err != nil {
		s.logger.Warn("failed to remove ticket from vector store", zap.String("ticket_id", id), zap.Error(err))
	}
	return nil
}

// Resolve runs the pipeline for an open ticket and persists the answer.
// The OPEN->RESOLVED transition happens exactly once; a second attempt is
// rejected as a conflict. On pipeline failure the ticket stays open so the
// caller can retry by resubmitting.
func (s *TicketService) Resolve(ctx context.Context, id string, options ResolveOptions) (*domain.Ticket, *domain.ResolutionResult, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if ticket.Status != domain.TicketStatusOpen {
		return nil, nil, apperrors.NewConflict("ticket already resolved", map[string]any{"ticket_id": id})
	}

	result, err := s.resolution.Resolve(ctx, domain.TicketInput{
		Title:         ticket.Title,
		Description:   ticket.Description,
		Category:      ticket.Category,
		Severity:      ticket.Severity,
		Application:   ticket.Application,
		Environment:   ticket.Environment,
		AffectedUsers: ticket.AffectedUsers,
	}, options)
	if err != nil {
		return nil, nil, err
	}

	resolved, err := s.tickets.MarkResolved(ctx, id, result.Reasoning, result.Solution)
	if err != nil {
		return nil, nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketResolved,
		SubjectID: resolved.ID,
		Payload: events.TicketResolvedPayload{
			ExternalKey: resolved.ExternalKey,
			Confidence:  result.Confidence,
		},
	})
	return resolved, result, nil
}

// IngestBatch pushes historical resolved tickets straight into the vector
// store. Individual failures are reported, not fatal.
func (s *TicketService) IngestBatch(ctx context.Context, items []HistoricalTicket) BatchIngestResult {
	result := BatchIngestResult{Total: len(items)}
	for _, item := range items {
		if err := s.ingestOne(ctx, item); err != nil {
			result.Failed = append(result.Failed, BatchIngestFailure{TicketID: item.TicketID, Error: err.Error()})
			continue
		}
		result.Uploaded++
	}
	return result
}

func (s *TicketService) ingestOne(ctx context.Context, item HistoricalTicket) error {
	if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Description) == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}
	externalKey := item.TicketID
	if externalKey == "" {
		externalKey = generateTicketKey()
	}
	reasoning := item.Reasoning
	solution := item.Solution
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		ExternalKey:   externalKey,
		Title:         item.Title,
		Description:   item.Description,
		Category:      item.Category,
		Severity:      domain.TicketSeverity(item.Severity),
		Application:   item.Application,
		Environment:   domain.TicketEnvironment(item.Environment),
		AffectedUsers: item.AffectedUsers,
		Status:        domain.TicketStatusResolved,
		Reasoning:     &reasoning,
		Solution:      &solution,
	}
	return s.index.IndexTicket(ctx, ticket)
}

func generateTicketKey() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
