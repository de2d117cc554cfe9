package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Severity      string `json:"severity"`
	Application   string `json:"application"`
	Environment   string `json:"environment"`
	AffectedUsers string `json:"affected_users"`
}

// ResolveTicketRequest toggles the agent's tools.
type ResolveTicketRequest struct {
	UseVectorSearch *bool `json:"use_vector_search"`
	UseWebSearch    *bool `json:"use_web_search"`
}

// HistoricalTicketRequest is one batch-ingest item.
type HistoricalTicketRequest struct {
	TicketID      string `json:"ticket_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Severity      string `json:"severity"`
	Application   string `json:"application"`
	Environment   string `json:"environment"`
	AffectedUsers string `json:"affected_users"`
	Reasoning     string `json:"reasoning"`
	Solution      string `json:"solution"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                   `json:"id"`
	ExternalKey string                   `json:"external_key"`
	Title       string                   `json:"title"`
	Category    string                   `json:"category"`
	Severity    domain.TicketSeverity    `json:"severity"`
	Environment domain.TicketEnvironment `json:"environment"`
	Status      domain.TicketStatus      `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID            string                   `json:"id"`
	ExternalKey   string                   `json:"external_key"`
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	Category      string                   `json:"category"`
	Severity      domain.TicketSeverity    `json:"severity"`
	Application   string                   `json:"application"`
	Environment   domain.TicketEnvironment `json:"environment"`
	AffectedUsers string                   `json:"affected_users"`
	Status        domain.TicketStatus      `json:"status"`
	Reasoning     *string                  `json:"reasoning"`
	Solution      *string                  `json:"solution"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
	ResolvedAt    *time.Time               `json:"resolved_at"`
}

// BatchIngestResponse reports batch outcomes.
type BatchIngestResponse struct {
	Total    int                  `json:"total"`
	Uploaded int                  `json:"uploaded"`
	Failed   []BatchIngestFailure `json:"failed,omitempty"`
}

// BatchIngestFailure names one failed item.
type BatchIngestFailure struct {
	TicketID string `json:"ticket_id"`
	Error    string `json:"error"`
}
