package dto

import "github.com/spec-kit/triage-service/internal/domain"

// ResolveRequest is the stateless resolution payload: incident fields plus
// tool toggles, no persistence.
type ResolveRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Severity        string `json:"severity"`
	Application     string `json:"application"`
	Environment     string `json:"environment"`
	AffectedUsers   string `json:"affected_users"`
	UseVectorSearch *bool  `json:"use_vector_search"`
	UseWebSearch    *bool  `json:"use_web_search"`
}

// ResolutionResponse mirrors the pipeline result.
type ResolutionResponse struct {
	Reasoning        string                   `json:"reasoning"`
	Solution         string                   `json:"solution"`
	SimilarTickets   []domain.SimilarityMatch `json:"similar_tickets"`
	Confidence       float64                  `json:"confidence"`
	UsedVectorSearch bool                     `json:"used_vector_search"`
	UsedWebSearch    bool                     `json:"used_web_search"`
	ToolInvocations  []ToolInvocationView     `json:"tool_invocations"`
}

// ToolInvocationView is the audit-trail rendering of one tool step.
type ToolInvocationView struct {
	ToolName   string         `json:"tool_name"`
	Input      map[string]any `json:"input"`
	Failed     bool           `json:"failed"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// NewResolutionResponse converts a pipeline result.
func NewResolutionResponse(result *domain.ResolutionResult) ResolutionResponse {
	invocations := make([]ToolInvocationView, 0, len(result.ToolInvocations))
	for _, inv := range result.ToolInvocations {
		invocations = append(invocations, ToolInvocationView{
			ToolName:   inv.ToolName,
			Input:      inv.Input,
			Failed:     inv.Failed,
			Error:      inv.Error,
			DurationMS: inv.Duration.Milliseconds(),
		})
	}
	return ResolutionResponse{
		Reasoning:        result.Reasoning,
		Solution:         result.Solution,
		SimilarTickets:   result.SimilarTickets,
		Confidence:       result.Confidence,
		UsedVectorSearch: result.UsedVectorSearch,
		UsedWebSearch:    result.UsedWebSearch,
		ToolInvocations:  invocations,
	}
}
