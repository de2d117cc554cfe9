package agent

import (
	"fmt"
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/llm"
)

const systemMessage = `You are an expert site reliability engineer resolving support tickets for cloud applications.

You are given the current incident, similar past incidents retrieved from the ticket knowledge base, and any additional context gathered from tools.

Respond in EXACTLY this format:

ROOT CAUSE: <concise analysis of the most likely root cause>
RESOLUTION: <numbered step-by-step resolution instructions>

Ground your analysis in the provided context when it is relevant. When past incidents carry known resolutions, prefer adapting them over inventing new ones. If the context is insufficient, say so in the root cause and give the best general guidance you can.`

const exampleHuman = `### Current Incident:
Title: Database Connection Timeout
Description: Users experiencing timeout errors when trying to access the application. Error logs show 'Connection pool exhausted' messages.
Category: Database
Severity: CRITICAL
Application: user-service
Environment: PRODUCTION
Affected Users: 500+

### Similar Past Incidents:
Past tickets showed similar connection pool issues during high load periods.

Provide root cause analysis and resolution.`

const exampleAssistant = `ROOT CAUSE: The connection pool is sized for normal load and exhausts under peak traffic, so new requests queue until their timeout expires. Past incidents on this service show the same signature during high load periods.

RESOLUTION: 1. Increase the connection pool maximum to absorb peak load.
2. Lower the per-query timeout so stuck queries release connections faster.
3. Check for leaked connections in recent deploys and fix unreleased handles.
4. Add pool saturation alerts at 80% utilization to catch recurrence early.`

// BuildSynthesisPrompt assembles the single synthesis call: a fixed system
// instruction, one few-shot exchange, and a human message carrying the
// incident, the seed similarity matches, and accumulated tool output.
func BuildSynthesisPrompt(ticket domain.TicketInput, seed []domain.SimilarityMatch, invocations []domain.ToolInvocation) []llm.Message {
	var sb strings.Builder

	sb.WriteString("### Current Incident:\n")
	fmt.Fprintf(&sb, "Title: %s\n", orNA(ticket.Title))
	fmt.Fprintf(&sb, "Description: %s\n", orNA(ticket.Description))
	fmt.Fprintf(&sb, "Category: %s\n", orNA(ticket.Category))
	fmt.Fprintf(&sb, "Severity: %s\n", orNA(string(ticket.Severity)))
	fmt.Fprintf(&sb, "Application: %s\n", orNA(ticket.Application))
	fmt.Fprintf(&sb, "Environment: %s\n", orNA(string(ticket.Environment)))
	fmt.Fprintf(&sb, "Affected Users: %s\n", orNA(ticket.AffectedUsers))

	sb.WriteString("\n### Similar Past Incidents:\n")
	sb.WriteString(FormatMatches(seed))

	toolContext := formatToolContext(invocations)
	if toolContext != "" {
		sb.WriteString("\n### Additional Context From Tools:\n")
		sb.WriteString(toolContext)
	}

	sb.WriteString("\nProvide root cause analysis and resolution.")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemMessage},
		{Role: llm.RoleUser, Content: exampleHuman},
		{Role: llm.RoleAssistant, Content: exampleAssistant},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

// FormatMatches renders similarity matches as a bulleted context block.
func FormatMatches(matches []domain.SimilarityMatch) string {
	if len(matches) == 0 {
		return "No similar past incidents were found in the knowledge base.\n"
	}
	var sb strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. [%.1f%% match] %s\n", i+1, m.Similarity*100, m.Title)
		if m.Description != "" {
			fmt.Fprintf(&sb, "   Description: %s\n", truncate(m.Description, 500))
		}
		if m.Reasoning != "" {
			fmt.Fprintf(&sb, "   Known root cause: %s\n", truncate(m.Reasoning, 500))
		}
		if m.Solution != "" {
			fmt.Fprintf(&sb, "   Known resolution: %s\n", truncate(m.Solution, 500))
		}
	}
	return sb.String()
}

func formatToolContext(invocations []domain.ToolInvocation) string {
	var sb strings.Builder
	for _, inv := range invocations {
		if inv.Failed || strings.TrimSpace(inv.Output) == "" {
			continue
		}
		fmt.Fprintf(&sb, "-- %s --\n%s\n", inv.ToolName, inv.Output)
	}
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
