package domain

import "time"

// SimilarityMatch is one nearest-neighbor hit from the vector store.
// Transient: constructed fresh per query, never persisted.
type SimilarityMatch struct {
	TicketID    string  `json:"ticket_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Severity    string  `json:"severity"`
	Reasoning   string  `json:"reasoning,omitempty"`
	Solution    string  `json:"solution,omitempty"`
	Similarity  float64 `json:"similarity_score"`
}

// ToolInvocation records one agent tool step for synthesis context and the
// audit trail returned with the result.
type ToolInvocation struct {
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input"`
	Output   string         `json:"output"`
	Failed   bool           `json:"failed"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// ResolutionResult is the pipeline output. Immutable once assembled.
type ResolutionResult struct {
	Reasoning        string            `json:"reasoning"`
	Solution         string            `json:"solution"`
	SimilarTickets   []SimilarityMatch `json:"similar_tickets"`
	Confidence       float64           `json:"confidence"`
	UsedVectorSearch bool              `json:"used_vector_search"`
	UsedWebSearch    bool              `json:"used_web_search"`
	ToolInvocations  []ToolInvocation  `json:"tool_invocations"`
}
