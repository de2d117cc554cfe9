package events

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketResolved  EventType = "ticket_resolved"
	EventDocumentAdded   EventType = "document_added"
	EventDocumentDeleted EventType = "document_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	ExternalKey string                `json:"external_key"`
	Title       string                `json:"title"`
	Severity    domain.TicketSeverity `json:"severity"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ExternalKey string  `json:"external_key"`
	Confidence  float64 `json:"confidence"`
}

// DocumentAddedPayload payload.
type DocumentAddedPayload struct {
	Title string `json:"title"`
}

// DocumentDeletedPayload payload.
type DocumentDeletedPayload struct {
	Title string `json:"title"`
}
