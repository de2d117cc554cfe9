package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/llm"
	"github.com/spec-kit/triage-service/internal/observability"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// State enumerates the agent control loop states.
type State string

const (
	StatePlanning      State = "planning"
	StateToolExecuting State = "tool_executing"
	StateSynthesizing  State = "synthesizing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// RunInput is one stateless resolution request for the agent.
type RunInput struct {
	Ticket          domain.TicketInput
	Seed            []domain.SimilarityMatch
	UseVectorSearch bool
	UseWebSearch    bool
}

// RunOutput carries the raw completion and the tool audit trail.
type RunOutput struct {
	Completion  string
	Invocations []domain.ToolInvocation
}

// Agent runs a bounded tool-gathering loop followed by a single synthesis
// call. The planner is deterministic: vector search first, then web search,
// each at most once per enabled flag, capped by iteration count and a
// wall-clock budget.
type Agent struct {
	registry      *Registry
	llm           llm.Backend
	metrics       *observability.Metrics
	logger        *zap.Logger
	maxIterations int
	maxDuration   time.Duration
}

// NewAgent constructs the agent.
func NewAgent(registry *Registry, backend llm.Backend, cfg config.AgentConfig, metrics *observability.Metrics, logger *zap.Logger) *Agent {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 15
	}
	maxDuration := cfg.MaxDuration()
	if maxDuration <= 0 {
		maxDuration = 120 * time.Second
	}
	return &Agent{
		registry:      registry,
		llm:           backend,
		metrics:       metrics,
		logger:        logger,
		maxIterations: maxIterations,
		maxDuration:   maxDuration,
	}
}

// Run drives the state machine to completion. Tool failures degrade
// gracefully; only a synthesis failure is fatal.
func (a *Agent) Run(ctx context.Context, input RunInput) (*RunOutput, error) {
	start := time.Now()
	invocations := make([]domain.ToolInvocation, 0, 2)
	invoked := make(map[string]bool)

	state := StatePlanning
	var nextTool string

	for state != StateSynthesizing {
		switch state {
		case StatePlanning:
			if len(invocations) >= a.maxIterations || time.Since(start) >= a.maxDuration || ctx.Err() != nil {
				// Budget exhausted: synthesize with whatever we have.
				state = StateSynthesizing
				continue
			}
			tool, ok := a.plan(input, invoked)
			if !ok {
				state = StateSynthesizing
				continue
			}
			nextTool = tool
			state = StateToolExecuting

		case StateToolExecuting:
			invocation, err := a.execute(ctx, nextTool, input)
			if err != nil {
				// Only UnknownToolError reaches here; a broken registry is a
				// deployment bug and fails the request outright.
				return nil, err
			}
			invocations = append(invocations, invocation)
			invoked[nextTool] = true
			state = StatePlanning
		}
	}

	messages := BuildSynthesisPrompt(input.Ticket, input.Seed, invocations)
	completion, err := a.llm.Complete(ctx, messages)
	if err != nil {
		a.logger.Error("synthesis failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, apperrors.NewGenerationFailed(err)
	}

	a.logger.Info("agent completed",
		zap.Int("tool_invocations", len(invocations)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &RunOutput{Completion: completion, Invocations: invocations}, nil
}

// plan picks the next tool: vector search before web search, each once.
func (a *Agent) plan(input RunInput, invoked map[string]bool) (string, bool) {
	if input.UseVectorSearch && !invoked[ToolVectorSearch] {
		return ToolVectorSearch, true
	}
	if input.UseWebSearch && !invoked[ToolWebSearch] {
		return ToolWebSearch, true
	}
	return "", false
}

func (a *Agent) execute(ctx context.Context, tool string, input RunInput) (domain.ToolInvocation, error) {
	args := map[string]any{"query": toolQuery(input.Ticket)}
	start := time.Now()

	result, err := a.registry.Invoke(ctx, tool, args)
	if err != nil {
		a.logger.Error("tool registry misconfigured", zap.String("tool", tool), zap.Error(err))
		return domain.ToolInvocation{}, err
	}

	invocation := domain.ToolInvocation{
		ToolName: tool,
		Input:    args,
		Output:   result.Output,
		Failed:   result.Failed,
		Error:    result.Error,
		Duration: time.Since(start),
	}
	a.metrics.RecordToolInvocation(tool, invocation.Failed)
	return invocation, nil
}

// toolQuery builds the search query from the incident's text fields.
func toolQuery(ticket domain.TicketInput) string {
	query := ticket.Title
	if ticket.Description != "" {
		query += " " + ticket.Description
	}
	if ticket.Application != "" {
		query += " " + ticket.Application
	}
	return query
}
