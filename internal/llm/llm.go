package llm

import "context"

// Message roles follow the chat-completions convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged prompt segment.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Backend produces a free-text completion for a structured prompt. Each call
// is stateless; no conversation memory carries across requests.
type Backend interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
