package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Transitions are
// one-way: a ticket moves from OPEN to RESOLVED exactly once.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusResolved TicketStatus = "RESOLVED"
)

// TicketSeverity enumerates incident impact, lowest to highest.
type TicketSeverity string

const (
	TicketSeverityLow      TicketSeverity = "LOW"
	TicketSeverityMedium   TicketSeverity = "MEDIUM"
	TicketSeverityHigh     TicketSeverity = "HIGH"
	TicketSeverityCritical TicketSeverity = "CRITICAL"
)

// TicketEnvironment enumerates deployment environments.
type TicketEnvironment string

const (
	TicketEnvironmentProduction  TicketEnvironment = "PRODUCTION"
	TicketEnvironmentStaging     TicketEnvironment = "STAGING"
	TicketEnvironmentDevelopment TicketEnvironment = "DEVELOPMENT"
)

// Ticket is the aggregate for support incidents. Reasoning and Solution are
// nil until the resolution pipeline completes, then both are set together.
type Ticket struct {
	ID            string
	ExternalKey   string
	Title         string
	Description   string
	Category      string
	Severity      TicketSeverity
	Application   string
	Environment   TicketEnvironment
	AffectedUsers string
	Status        TicketStatus
	Reasoning     *string
	Solution      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// TicketInput carries the incident fields a caller submits for resolution,
// before any persistence concerns apply.
type TicketInput struct {
	Title         string
	Description   string
	Category      string
	Severity      TicketSeverity
	Application   string
	Environment   TicketEnvironment
	AffectedUsers string
}

// ValidSeverity reports whether s belongs to the fixed severity set.
func ValidSeverity(s TicketSeverity) bool {
	switch s {
	case TicketSeverityLow, TicketSeverityMedium, TicketSeverityHigh, TicketSeverityCritical:
		return true
	}
	return false
}

// ValidEnvironment reports whether e belongs to the fixed environment set.
func ValidEnvironment(e TicketEnvironment) bool {
	switch e {
	case TicketEnvironmentProduction, TicketEnvironmentStaging, TicketEnvironmentDevelopment:
		return true
	}
	return false
}
