package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/websearch"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// Tool names the registry ships with.
const (
	ToolVectorSearch = "vector_search"
	ToolWebSearch    = "web_search"
)

// VectorSearcher is the slice of the similarity service the registry needs.
type VectorSearcher interface {
	FindSimilar(ctx context.Context, text string, limit int, minSimilarity float64) ([]domain.SimilarityMatch, error)
}

// ToolSpec describes an invocable tool.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolResult is the outcome of one invocation. A provider failure sets
// Failed rather than surfacing an error; a single broken tool must not
// abort the resolution.
type ToolResult struct {
	Output string
	Failed bool
	Error  string
}

type toolFunc func(ctx context.Context, args map[string]any) (string, error)

type registeredTool struct {
	spec ToolSpec
	run  toolFunc
}

// Registry exposes named tools with declared schemas to the agent.
type Registry struct {
	tools  map[string]registeredTool
	order  []string
	logger *zap.Logger
}

// NewRegistry builds a registry with the two built-in tools. maxSearchLimit
// caps the limit argument of vector_search; maxWebResults does the same for
// web_search.
func NewRegistry(searcher VectorSearcher, web websearch.Provider, maxSearchLimit, maxWebResults int, logger *zap.Logger) *Registry {
	if maxSearchLimit <= 0 {
		maxSearchLimit = 5
	}
	if maxWebResults <= 0 {
		maxWebResults = 5
	}
	r := &Registry{tools: make(map[string]registeredTool), logger: logger}

	r.register(ToolSpec{
		Name: ToolVectorSearch,
		Description: "Search the ticket knowledge base for past incidents semantically similar to a query. " +
			"Use it to find how related problems were diagnosed and resolved before.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "what to look for"},
				"limit": map[string]any{"type": "integer", "maximum": maxSearchLimit},
			},
			"required": []string{"query"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		query, err := stringArg(args, "query")
		if err != nil {
			return "", err
		}
		limit := intArg(args, "limit", maxSearchLimit)
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
		// Context augmentation wants raw top-k, so no similarity gate here.
		matches, err := searcher.FindSimilar(ctx, query, limit, 0)
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "No relevant past incidents found in the knowledge base.", nil
		}
		return FormatMatches(matches), nil
	})

	r.register(ToolSpec{
		Name: ToolWebSearch,
		Description: "Search the web for current information not present in the knowledge base, " +
			"such as recent outages, CVEs, or vendor status pages.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "search query"},
				"limit": map[string]any{"type": "integer", "maximum": maxWebResults},
			},
			"required": []string{"query"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		query, err := stringArg(args, "query")
		if err != nil {
			return "", err
		}
		limit := intArg(args, "limit", maxWebResults)
		if limit > maxWebResults {
			limit = maxWebResults
		}
		results, err := web.Search(ctx, query, limit)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No web search results found.", nil
		}
		var sb strings.Builder
		for i, res := range results {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n   Source: %s\n", i+1, res.Title, res.Snippet, res.URL)
		}
		return sb.String(), nil
	})

	return r
}

func (r *Registry) register(spec ToolSpec, run toolFunc) {
	r.tools[spec.Name] = registeredTool{spec: spec, run: run}
	r.order = append(r.order, spec.Name)
}

// ListTools returns the specs in registration order.
func (r *Registry) ListTools() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

// Invoke runs the named tool. Unknown names are a registry misconfiguration
// and fail hard; tool execution failures are captured in the result.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	tool, ok := r.tools[name]
	if !ok {
		return ToolResult{}, apperrors.NewUnknownTool(name)
	}

	output, err := tool.run(ctx, args)
	if err != nil {
		r.logger.Warn("tool invocation failed", zap.String("tool", name), zap.Error(err))
		return ToolResult{Failed: true, Error: err.Error()}, nil
	}
	return ToolResult{Output: output}, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}
