package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBothMarkers(t *testing.T) {
	parsed := Parse("ROOT CAUSE: Connection pool exhausted.\nRESOLUTION: Raise the pool size.")

	assert.Equal(t, "Connection pool exhausted.", parsed.Reasoning)
	assert.Equal(t, "Raise the pool size.", parsed.Solution)
	assert.False(t, parsed.Degraded)
}

func TestParseCaseInsensitiveMarkers(t *testing.T) {
	parsed := Parse("root cause: disk full\nresolution: rotate logs")

	assert.Equal(t, "disk full", parsed.Reasoning)
	assert.Equal(t, "rotate logs", parsed.Solution)
	assert.False(t, parsed.Degraded)
}

func TestParseResolutionStepsDrift(t *testing.T) {
	parsed := Parse("ROOT CAUSE: stale DNS cache\nRESOLUTION STEPS: flush the resolver cache")

	assert.Equal(t, "stale DNS cache", parsed.Reasoning)
	assert.Equal(t, "flush the resolver cache", parsed.Solution)
	assert.False(t, parsed.Degraded)
}

func TestParseReversedMarkers(t *testing.T) {
	parsed := Parse("RESOLUTION: fail over to the replica\nROOT CAUSE: primary disk failure")

	assert.Equal(t, "primary disk failure", parsed.Reasoning)
	assert.Equal(t, "fail over to the replica", parsed.Solution)
	assert.False(t, parsed.Degraded)
}

func TestParseOnlyRootCause(t *testing.T) {
	parsed := Parse("ROOT CAUSE: certificate expired last night")

	assert.Equal(t, "certificate expired last night", parsed.Reasoning)
	assert.Equal(t, SolutionUnavailable, parsed.Solution)
	assert.True(t, parsed.Degraded)
}

func TestParseOnlyResolution(t *testing.T) {
	parsed := Parse("RESOLUTION: restart the ingestion workers")

	assert.Equal(t, ReasoningUnavailable, parsed.Reasoning)
	assert.Equal(t, "restart the ingestion workers", parsed.Solution)
	assert.True(t, parsed.Degraded)
}

func TestParseNoMarkers(t *testing.T) {
	parsed := Parse("Try restarting the service and check the logs.")

	assert.Equal(t, ReasoningUnavailable, parsed.Reasoning)
	assert.Equal(t, "Try restarting the service and check the logs.", parsed.Solution)
	assert.True(t, parsed.Degraded)
}

func TestParseEmptyCompletion(t *testing.T) {
	parsed := Parse("   \n  ")

	assert.Equal(t, ReasoningUnavailable, parsed.Reasoning)
	assert.Equal(t, SolutionUnavailable, parsed.Solution)
	assert.True(t, parsed.Degraded)
}

func TestParseMarkersWithEmptySegments(t *testing.T) {
	parsed := Parse("ROOT CAUSE:\nRESOLUTION:")

	assert.Equal(t, ReasoningUnavailable, parsed.Reasoning)
	assert.Equal(t, SolutionUnavailable, parsed.Solution)
	assert.True(t, parsed.Degraded)
}

func TestParseMultilineSegments(t *testing.T) {
	raw := "ROOT CAUSE: The cache nodes ran out of memory\nafter the eviction policy changed.\n" +
		"RESOLUTION: 1. Revert the policy.\n2. Restart the nodes."
	parsed := Parse(raw)

	assert.Equal(t, "The cache nodes ran out of memory\nafter the eviction policy changed.", parsed.Reasoning)
	assert.Equal(t, "1. Revert the policy.\n2. Restart the nodes.", parsed.Solution)
	assert.False(t, parsed.Degraded)
}
