package agent

import "strings"

// Section markers the synthesis prompt instructs the model to emit. Matching
// is case-insensitive and tolerates the "RESOLUTION STEPS" drift some models
// produce.
const (
	RootCauseMarker  = "ROOT CAUSE:"
	ResolutionMarker = "RESOLUTION:"
)

// Sentinel texts for sections the model failed to produce. These are
// returned in place of the missing field so callers can render a visible
// warning instead of an empty answer.
const (
	ReasoningUnavailable = "Unable to generate root cause analysis."
	SolutionUnavailable  = "Unable to generate resolution steps."
)

// ParsedAnswer is the structured form of a raw completion.
type ParsedAnswer struct {
	Reasoning string
	Solution  string
	Degraded  bool
}

// Parse splits a raw completion into reasoning and solution using the
// section markers. Format compliance is probabilistic, so every shape of
// output still yields a usable answer:
//
//   - both markers, either order: each field gets its segment
//   - one marker: that field is filled, the other gets its sentinel
//   - no markers: the whole text becomes the solution
func Parse(raw string) ParsedAnswer {
	text := strings.TrimSpace(raw)
	upper := strings.ToUpper(text)

	rootIdx := strings.Index(upper, RootCauseMarker)
	resIdx := strings.Index(upper, ResolutionMarker)

	switch {
	case rootIdx >= 0 && resIdx > rootIdx:
		reasoning := strings.TrimSpace(text[rootIdx+len(RootCauseMarker) : resIdx])
		solution := strings.TrimSpace(trimStepsLabel(text[resIdx+len(ResolutionMarker):]))
		return padEmpty(reasoning, solution)
	case resIdx >= 0 && rootIdx > resIdx:
		solution := strings.TrimSpace(trimStepsLabel(text[resIdx+len(ResolutionMarker) : rootIdx]))
		reasoning := strings.TrimSpace(text[rootIdx+len(RootCauseMarker):])
		return padEmpty(reasoning, solution)
	case rootIdx >= 0:
		reasoning := strings.TrimSpace(text[rootIdx+len(RootCauseMarker):])
		return padEmpty(reasoning, "")
	case resIdx >= 0:
		solution := strings.TrimSpace(trimStepsLabel(text[resIdx+len(ResolutionMarker):]))
		return padEmpty("", solution)
	default:
		if text == "" {
			return ParsedAnswer{Reasoning: ReasoningUnavailable, Solution: SolutionUnavailable, Degraded: true}
		}
		return ParsedAnswer{Reasoning: ReasoningUnavailable, Solution: text, Degraded: true}
	}
}

func padEmpty(reasoning, solution string) ParsedAnswer {
	answer := ParsedAnswer{Reasoning: reasoning, Solution: solution}
	if answer.Reasoning == "" {
		answer.Reasoning = ReasoningUnavailable
		answer.Degraded = true
	}
	if answer.Solution == "" {
		answer.Solution = SolutionUnavailable
		answer.Degraded = true
	}
	return answer
}

// trimStepsLabel drops a leading "STEPS:" left over when the model writes
// "RESOLUTION STEPS:" instead of the requested "RESOLUTION:".
func trimStepsLabel(s string) string {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "STEPS:") {
		return trimmed[len("STEPS:"):]
	}
	return trimmed
}
