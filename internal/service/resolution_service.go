package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/agent"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/observability"
)

// ResolveOptions toggles the agent's tools per request.
type ResolveOptions struct {
	UseVectorSearch bool
	UseWebSearch    bool
}

// ResolutionService is the pipeline: similarity gate, tool-using agent,
// output parsing, result assembly. Each Resolve call is independent and
// steps within it run sequentially.
type ResolutionService struct {
	similarity *SimilarityService
	agent      *agent.Agent
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AgentConfig
}

// NewResolutionService constructs the pipeline.
func NewResolutionService(similarity *SimilarityService, resolutionAgent *agent.Agent, cfg config.AgentConfig, metrics *observability.Metrics, logger *zap.Logger) *ResolutionService {
	return &ResolutionService{
		similarity: similarity,
		agent:      resolutionAgent,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Resolve produces a reasoning/solution answer for the incident. A gate
// failure degrades to generation without historical context; only an agent
// (synthesis) failure fails the call.
//
// Matches above the threshold never short-circuit generation: the answer is
// always freshly synthesized, conditioned on historical context, rather than
// reused verbatim for a similar-but-not-identical incident.
func (s *ResolutionService) Resolve(ctx context.Context, input domain.TicketInput, options ResolveOptions) (*domain.ResolutionResult, error) {
	start := time.Now()

	queryText := input.Title + " " + input.Description
	if input.Application != "" {
		queryText += " " + input.Application
	}

	matches, err := s.similarity.FindSimilar(ctx, queryText, s.cfg.SearchLimit, s.cfg.SimilarityThreshold)
	if err != nil {
		s.logger.Warn("similarity gate unavailable; continuing without history", zap.Error(err))
		matches = nil
	}

	output, err := s.agent.Run(ctx, agent.RunInput{
		Ticket:          input,
		Seed:            matches,
		UseVectorSearch: options.UseVectorSearch,
		UseWebSearch:    options.UseWebSearch,
	})
	if err != nil {
		return nil, err
	}

	parsed := agent.Parse(output.Completion)
	if parsed.Degraded {
		s.logger.Warn("completion missing section markers; degraded answer returned")
	}

	result := &domain.ResolutionResult{
		Reasoning:       parsed.Reasoning,
		Solution:        parsed.Solution,
		SimilarTickets:  matches,
		Confidence:      topConfidence(matches),
		ToolInvocations: output.Invocations,
	}
	for _, inv := range output.Invocations {
		if inv.Failed {
			continue
		}
		switch inv.ToolName {
		case agent.ToolVectorSearch:
			result.UsedVectorSearch = true
		case agent.ToolWebSearch:
			result.UsedWebSearch = true
		}
	}

	s.metrics.RecordResolution(time.Since(start))
	s.logger.Info("resolution completed",
		zap.Int("similar_tickets", len(matches)),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("degraded", parsed.Degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func topConfidence(matches []domain.SimilarityMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	return matches[0].Similarity
}
