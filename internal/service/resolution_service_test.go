package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/agent"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/embedding"
	"github.com/spec-kit/triage-service/internal/llm"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/vectorstore"
	"github.com/spec-kit/triage-service/internal/websearch"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

type fakeLLM struct {
	completion string
	err        error

	gotMessages []llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.gotMessages = messages
	return f.completion, f.err
}

type fakeWebProvider struct {
	results []websearch.Result
	err     error
}

func (f *fakeWebProvider) Search(context.Context, string, int) ([]websearch.Result, error) {
	return f.results, f.err
}

func pipelineConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxIterations:       15,
		MaxSeconds:          120,
		SimilarityThreshold: 0.85,
		SearchLimit:         3,
		ToolSearchLimit:     5,
	}
}

func newResolutionPipeline(store *fakeStore, web *fakeWebProvider, backend llm.Backend) *ResolutionService {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := pipelineConfig()

	embedder := embedding.NewProvider(&fakeBackend{vector: []float32{0.1, 0.2}}, nil, logger)
	similarity := NewSimilarityService(embedder, store, logger)
	registry := agent.NewRegistry(similarity, web, cfg.ToolSearchLimit, 5, logger)
	resolutionAgent := agent.NewAgent(registry, backend, cfg, metrics, logger)
	return NewResolutionService(similarity, resolutionAgent, cfg, metrics, logger)
}

func pipelineTicket() domain.TicketInput {
	return domain.TicketInput{
		Title:       "Login failures after deploy",
		Description: "Users cannot authenticate, sessions expire instantly.",
		Category:    "Authentication",
		Severity:    domain.TicketSeverityCritical,
		Application: "auth-service",
		Environment: domain.TicketEnvironmentProduction,
	}
}

func TestResolveWithHighSimilarityMatch(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		{
			ID:       "abc",
			Distance: 0.08,
			Payload: map[string]any{
				"ticket_id": "TKT-PAST0001",
				"title":     "Session store eviction storm",
				"reasoning": "Session TTL misconfigured",
				"solution":  "Restore the TTL to 30m",
			},
		},
	}}
	backend := &fakeLLM{completion: "ROOT CAUSE: Session TTL misconfigured again.\nRESOLUTION: 1. Restore the TTL."}
	svc := newResolutionPipeline(store, &fakeWebProvider{}, backend)

	result, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Session TTL misconfigured again.", result.Reasoning)
	assert.Equal(t, "1. Restore the TTL.", result.Solution)
	require.Len(t, result.SimilarTickets, 1)
	assert.Equal(t, "TKT-PAST0001", result.SimilarTickets[0].TicketID)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)

	// The gate seeds generation; matched history lands in the prompt.
	final := backend.gotMessages[len(backend.gotMessages)-1]
	assert.Contains(t, final.Content, "Session store eviction storm")
}

func TestResolveBelowThresholdGeneratesWithoutHistory(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		{ID: "abc", Distance: 0.40, Payload: map[string]any{"ticket_id": "TKT-FAR00001", "title": "Unrelated"}},
	}}
	backend := &fakeLLM{completion: "ROOT CAUSE: new failure mode\nRESOLUTION: investigate"}
	svc := newResolutionPipeline(store, &fakeWebProvider{}, backend)

	result, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.SimilarTickets)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, "new failure mode", result.Reasoning)
}

func TestResolveStoreDownDegradesToNoHistory(t *testing.T) {
	store := &fakeStore{err: errors.New("weaviate unreachable")}
	backend := &fakeLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	svc := newResolutionPipeline(store, &fakeWebProvider{}, backend)

	result, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.SimilarTickets)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, "x", result.Reasoning)
	assert.Equal(t, "y", result.Solution)
}

func TestResolveSynthesisFailure(t *testing.T) {
	backend := &fakeLLM{err: errors.New("rate limited")}
	svc := newResolutionPipeline(&fakeStore{}, &fakeWebProvider{}, backend)

	_, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "GENERATION_FAILED"))
}

func TestResolveRecordsToolUsage(t *testing.T) {
	web := &fakeWebProvider{results: []websearch.Result{
		{Title: "Known issue", Snippet: "Vendor outage", URL: "https://status.example.com"},
	}}
	backend := &fakeLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	svc := newResolutionPipeline(&fakeStore{}, web, backend)

	result, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{
		UseVectorSearch: true,
		UseWebSearch:    true,
	})
	require.NoError(t, err)
	require.Len(t, result.ToolInvocations, 2)
	assert.True(t, result.UsedVectorSearch)
	assert.True(t, result.UsedWebSearch)
}

func TestResolveFailedToolDoesNotClaimUsage(t *testing.T) {
	web := &fakeWebProvider{err: errors.New("dns failure")}
	backend := &fakeLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	svc := newResolutionPipeline(&fakeStore{}, web, backend)

	result, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{UseWebSearch: true})
	require.NoError(t, err)
	require.Len(t, result.ToolInvocations, 1)
	assert.True(t, result.ToolInvocations[0].Failed)
	assert.False(t, result.UsedWebSearch)
}

func TestResolveDegradedCompletionStillReturnsResult(t *testing.T) {
	backend := &fakeLLM{completion: "Some free-form answer without markers."}
	svc := newResolutionPipeline(&fakeStore{}, &fakeWebProvider{}, backend)

	result, err := svc.Resolve(context.Background(), pipelineTicket(), ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, agent.ReasoningUnavailable, result.Reasoning)
	assert.Equal(t, "Some free-form answer without markers.", result.Solution)
}
