package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/embedding"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/llm"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/vectorstore"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

type fakeTicketRepo struct {
	byID map[string]*domain.Ticket

	created  []*domain.Ticket
	resolved map[string]bool
	deleted  []string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byID: make(map[string]*domain.Ticket), resolved: make(map[string]bool)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = "id-" + ticket.ExternalKey
	}
	f.created = append(f.created, ticket)
	f.byID[ticket.ID] = ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) GetByExternalKey(_ context.Context, key string) (*domain.Ticket, error) {
	for _, t := range f.byID {
		if t.ExternalKey == key {
			return t, nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", map[string]any{"external_key": key})
}

func (f *fakeTicketRepo) List(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	out := make([]domain.Ticket, 0, len(f.byID))
	for _, t := range f.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTicketRepo) MarkResolved(_ context.Context, id, reasoning, solution string) (*domain.Ticket, error) {
	ticket, ok := f.byID[id]
	if !ok || ticket.Status != domain.TicketStatusOpen {
		// Mirrors the guarded UPDATE: no row updated means the transition
		// already happened.
		return nil, apperrors.NewConflict("ticket already resolved", map[string]any{"ticket_id": id})
	}
	ticket.Status = domain.TicketStatusResolved
	ticket.Reasoning = &reasoning
	ticket.Solution = &solution
	f.resolved[id] = true
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestTicketService(repo repository.TicketRepository, store *fakeStore, backend llm.Backend) *TicketService {
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	embedder := embedding.NewProvider(&fakeBackend{vector: []float32{0.1}}, nil, logger)
	index := NewIndexService(IndexDependencies{
		Embedder:    embedder,
		TicketStore: store,
		TicketRepo:  repo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	index.RegisterHandlers()

	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Resolution: newResolutionPipeline(store, &fakeWebProvider{}, backend),
		Similarity: NewSimilarityService(embedder, store, logger),
		Index:      index,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
}

func TestSubmitDefaultsAndKey(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestTicketService(repo, &fakeStore{}, &fakeLLM{})

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{
		Title:       "Queue backlog growing",
		Description: "Consumers lag 20 minutes behind.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketSeverityMedium, ticket.Severity)
	assert.Equal(t, domain.TicketEnvironmentProduction, ticket.Environment)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Regexp(t, regexp.MustCompile(`^TKT-[0-9A-F]{8}$`), ticket.ExternalKey)
	assert.Nil(t, ticket.Reasoning)
	assert.Nil(t, ticket.Solution)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestTicketService(newFakeTicketRepo(), &fakeStore{}, &fakeLLM{})

	_, err := svc.Submit(context.Background(), TicketSubmitInput{Title: "  ", Description: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = svc.Submit(context.Background(), TicketSubmitInput{
		Title:       "t",
		Description: "d",
		Severity:    domain.TicketSeverity("URGENT"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestResolvePersistsAnswerAndIndexes(t *testing.T) {
	repo := newFakeTicketRepo()
	store := &fakeStore{}
	backend := &fakeLLM{completion: "ROOT CAUSE: misrouted traffic\nRESOLUTION: fix the route table"}
	svc := newTestTicketService(repo, store, backend)

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{
		Title:       "5xx from edge",
		Description: "Traffic is hitting a decommissioned pool.",
	})
	require.NoError(t, err)

	resolved, result, err := svc.Resolve(context.Background(), ticket.ID, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	require.NotNil(t, resolved.Reasoning)
	assert.Equal(t, "misrouted traffic", *resolved.Reasoning)
	assert.Equal(t, "fix the route table", result.Solution)

	// The resolved event triggers reindexing into the vector store.
	require.Contains(t, store.upserts, ticket.ID)
	assert.Equal(t, ticket.ExternalKey, store.upserts[ticket.ID]["ticket_id"])
	assert.Equal(t, "RESOLVED", store.upserts[ticket.ID]["status"])
}

func TestResolveAlreadyResolvedConflict(t *testing.T) {
	repo := newFakeTicketRepo()
	backend := &fakeLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	svc := newTestTicketService(repo, &fakeStore{}, backend)

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, _, err = svc.Resolve(context.Background(), ticket.ID, ResolveOptions{})
	require.NoError(t, err)

	_, _, err = svc.Resolve(context.Background(), ticket.ID, ResolveOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

// staleReadTicketRepo reports every ticket as still OPEN from GetByID,
// simulating a resolve that raced past the status pre-check while another
// request already flipped the row.
type staleReadTicketRepo struct {
	*fakeTicketRepo
}

func (r *staleReadTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.fakeTicketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatusOpen
	return ticket, nil
}

func TestResolveLostRaceIsConflict(t *testing.T) {
	repo := newFakeTicketRepo()
	backend := &fakeLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	svc := newTestTicketService(&staleReadTicketRepo{repo}, &fakeStore{}, backend)

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, _, err = svc.Resolve(context.Background(), ticket.ID, ResolveOptions{})
	require.NoError(t, err)

	// The pre-check sees OPEN, so the guarded update is what rejects the
	// second resolve.
	_, _, err = svc.Resolve(context.Background(), ticket.ID, ResolveOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestGetByExternalKey(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestTicketService(repo, &fakeStore{}, &fakeLLM{})

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	found, err := svc.Get(context.Background(), ticket.ExternalKey)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, found.ID)

	_, err = svc.Get(context.Background(), "TKT-DEADBEEF")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestSearchSimilarReturnsWeakMatches(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		{ID: "a", Distance: 0.05, Payload: map[string]any{"ticket_id": "TKT-A", "title": "near"}},
		{ID: "b", Distance: 0.7, Payload: map[string]any{"ticket_id": "TKT-B", "title": "far"}},
	}}
	svc := newTestTicketService(newFakeTicketRepo(), store, &fakeLLM{})

	matches, err := svc.SearchSimilar(context.Background(), "checkout errors", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "TKT-A", matches[0].TicketID)
	assert.InDelta(t, 0.3, matches[1].Similarity, 1e-9)
	assert.Equal(t, 5, store.gotLimit)
}

func TestSearchSimilarEmptyQuery(t *testing.T) {
	svc := newTestTicketService(newFakeTicketRepo(), &fakeStore{}, &fakeLLM{})

	_, err := svc.SearchSimilar(context.Background(), "   ", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestResolvePipelineFailureKeepsTicketOpen(t *testing.T) {
	repo := newFakeTicketRepo()
	backend := &fakeLLM{err: assert.AnError}
	svc := newTestTicketService(repo, &fakeStore{}, backend)

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	_, _, err = svc.Resolve(context.Background(), ticket.ID, ResolveOptions{})
	require.Error(t, err)

	fresh, err := svc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, fresh.Status)
}

func TestIngestBatchReportsPerItemFailures(t *testing.T) {
	store := &fakeStore{}
	svc := newTestTicketService(newFakeTicketRepo(), store, &fakeLLM{})

	result := svc.IngestBatch(context.Background(), []HistoricalTicket{
		{TicketID: "TKT-HIST0001", Title: "Old incident", Description: "desc", Solution: "restart"},
		{TicketID: "TKT-HIST0002", Title: "", Description: "desc"},
	})

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Uploaded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "TKT-HIST0002", result.Failed[0].TicketID)
	assert.Len(t, store.upserts, 1)
}

func TestDeleteRemovesFromStoreBestEffort(t *testing.T) {
	repo := newFakeTicketRepo()
	store := &fakeStore{}
	svc := newTestTicketService(repo, store, &fakeLLM{})

	ticket, err := svc.Submit(context.Background(), TicketSubmitInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ticket.ID))
	assert.Contains(t, repo.deleted, ticket.ID)
	assert.Contains(t, store.deleted, ticket.ID)
}
