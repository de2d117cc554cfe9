package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/llm"
	"github.com/spec-kit/triage-service/internal/observability"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

type stubLLM struct {
	completion string
	err        error

	gotMessages []llm.Message
	calls       int
}

func (s *stubLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.gotMessages = messages
	return s.completion, s.err
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxIterations:       15,
		MaxSeconds:          120,
		SimilarityThreshold: 0.85,
		SearchLimit:         3,
		ToolSearchLimit:     5,
	}
}

func newTestAgent(searcher VectorSearcher, web *stubWebProvider, backend llm.Backend) *Agent {
	logger := zap.NewNop()
	registry := NewRegistry(searcher, web, 5, 5, logger)
	return NewAgent(registry, backend, testAgentConfig(), observability.NewMetrics(), logger)
}

func sampleTicket() domain.TicketInput {
	return domain.TicketInput{
		Title:       "Payment API returning 504",
		Description: "Checkout requests time out under load.",
		Category:    "API",
		Severity:    domain.TicketSeverityHigh,
		Application: "payment-service",
		Environment: domain.TicketEnvironmentProduction,
	}
}

func TestAgentRunNoToolsEnabled(t *testing.T) {
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := newTestAgent(&stubSearcher{}, &stubWebProvider{}, backend)

	out, err := a.Run(context.Background(), RunInput{Ticket: sampleTicket()})
	require.NoError(t, err)
	assert.Empty(t, out.Invocations)
	assert.Equal(t, "ROOT CAUSE: x\nRESOLUTION: y", out.Completion)
	assert.Equal(t, 1, backend.calls)
}

func TestAgentRunBothToolsOnce(t *testing.T) {
	searcher := &stubSearcher{matches: []domain.SimilarityMatch{
		{TicketID: "TKT-11111111", Title: "Earlier 504 storm", Similarity: 0.88},
	}}
	web := &stubWebProvider{}
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := newTestAgent(searcher, web, backend)

	out, err := a.Run(context.Background(), RunInput{
		Ticket:          sampleTicket(),
		UseVectorSearch: true,
		UseWebSearch:    true,
	})
	require.NoError(t, err)
	require.Len(t, out.Invocations, 2)
	assert.Equal(t, ToolVectorSearch, out.Invocations[0].ToolName)
	assert.Equal(t, ToolWebSearch, out.Invocations[1].ToolName)
	assert.Equal(t, 1, backend.calls)
}

func TestAgentRunToolFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("store down")}
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := newTestAgent(searcher, &stubWebProvider{}, backend)

	out, err := a.Run(context.Background(), RunInput{Ticket: sampleTicket(), UseVectorSearch: true})
	require.NoError(t, err)
	require.Len(t, out.Invocations, 1)
	assert.True(t, out.Invocations[0].Failed)
	assert.Contains(t, out.Invocations[0].Error, "store down")
	assert.Equal(t, 1, backend.calls)
}

func TestAgentRunSynthesisFailure(t *testing.T) {
	backend := &stubLLM{err: errors.New("upstream 500")}
	a := newTestAgent(&stubSearcher{}, &stubWebProvider{}, backend)

	_, err := a.Run(context.Background(), RunInput{Ticket: sampleTicket()})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "GENERATION_FAILED"))
}

func TestAgentRunIterationBudget(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(&stubSearcher{}, &stubWebProvider{}, 5, 5, logger)
	cfg := testAgentConfig()
	cfg.MaxIterations = 1
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := NewAgent(registry, backend, cfg, observability.NewMetrics(), logger)

	out, err := a.Run(context.Background(), RunInput{
		Ticket:          sampleTicket(),
		UseVectorSearch: true,
		UseWebSearch:    true,
	})
	require.NoError(t, err)
	// The second tool is skipped once the iteration budget is spent.
	assert.Len(t, out.Invocations, 1)
}

type slowSearcher struct {
	delay time.Duration
}

func (s *slowSearcher) FindSimilar(ctx context.Context, _ string, _ int, _ float64) ([]domain.SimilarityMatch, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return nil, nil
}

func TestAgentRunWallClockBudget(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(&slowSearcher{delay: 1100 * time.Millisecond}, &stubWebProvider{}, 5, 5, logger)
	cfg := testAgentConfig()
	cfg.MaxSeconds = 1
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := NewAgent(registry, backend, cfg, observability.NewMetrics(), logger)

	out, err := a.Run(context.Background(), RunInput{
		Ticket:          sampleTicket(),
		UseVectorSearch: true,
		UseWebSearch:    true,
	})
	require.NoError(t, err)
	// The first tool eats the whole wall-clock budget, so web search is
	// skipped and synthesis runs with partial context.
	require.Len(t, out.Invocations, 1)
	assert.Equal(t, ToolVectorSearch, out.Invocations[0].ToolName)
	assert.Equal(t, 1, backend.calls)
}

func TestAgentRunCancelledContextSkipsTools(t *testing.T) {
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := newTestAgent(&stubSearcher{}, &stubWebProvider{}, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := a.Run(ctx, RunInput{Ticket: sampleTicket(), UseVectorSearch: true, UseWebSearch: true})
	require.NoError(t, err)
	assert.Empty(t, out.Invocations)
}

func TestAgentPromptCarriesSeedMatches(t *testing.T) {
	backend := &stubLLM{completion: "ROOT CAUSE: x\nRESOLUTION: y"}
	a := newTestAgent(&stubSearcher{}, &stubWebProvider{}, backend)

	seed := []domain.SimilarityMatch{{TicketID: "TKT-AAAA0000", Title: "Gateway saturation", Similarity: 0.9}}
	_, err := a.Run(context.Background(), RunInput{Ticket: sampleTicket(), Seed: seed})
	require.NoError(t, err)

	require.NotEmpty(t, backend.gotMessages)
	final := backend.gotMessages[len(backend.gotMessages)-1]
	assert.Equal(t, llm.RoleUser, final.Role)
	assert.Contains(t, final.Content, "Gateway saturation")
	assert.Contains(t, final.Content, "Payment API returning 504")
}
