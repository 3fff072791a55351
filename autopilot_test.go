package xr872

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideCellFreshnessWindow(t *testing.T) {
	c := &overrideCell{}
	_, fresh := c.read()
	assert.False(t, fresh, "empty cell reports no override")

	c.write(Snapshot{Roll: 10})
	v, fresh := c.read()
	require.True(t, fresh)
	assert.Equal(t, 10.0, v.Roll)

	c.writtenAt = time.Now().Add(-2 * overrideStaleAfter)
	_, fresh = c.read()
	assert.False(t, fresh, "stale write should report no override")
}

func TestOverrideCellClear(t *testing.T) {
	c := &overrideCell{}
	c.write(Snapshot{Roll: 10})
	c.clear()
	_, fresh := c.read()
	assert.False(t, fresh)
}

func TestAutopilotStartWritesOverride(t *testing.T) {
	cell := &overrideCell{}
	ap := NewAutopilot(cell, testLogger())

	ap.Start(Pattern{Name: "test", Steps: []FlightStep{
		{Roll: 30, DurationMs: 1000},
	}})
	defer ap.Stop()

	require.Eventually(t, func() bool {
		v, fresh := cell.read()
		return fresh && v.Roll == 30
	}, time.Second, 10*time.Millisecond)

	status := ap.Status()
	assert.True(t, status.Running)
	assert.Equal(t, "test", status.Pattern)
}

func TestAutopilotStopClearsOverride(t *testing.T) {
	cell := &overrideCell{}
	ap := NewAutopilot(cell, testLogger())
	ap.Start(Pattern{Name: "test", Steps: []FlightStep{{Roll: 10, DurationMs: 1000}}})

	require.Eventually(t, func() bool {
		_, fresh := cell.read()
		return fresh
	}, time.Second, 10*time.Millisecond)

	ap.Stop()
	_, fresh := cell.read()
	assert.False(t, fresh)
	assert.False(t, ap.Status().Running)
}

func TestAutopilotAdvancesSteps(t *testing.T) {
	cell := &overrideCell{}
	ap := NewAutopilot(cell, testLogger())
	ap.Start(Pattern{Name: "two-step", Steps: []FlightStep{
		{Roll: 1, DurationMs: 25},
		{Roll: 2, DurationMs: 25},
	}})
	defer ap.Stop()

	require.Eventually(t, func() bool {
		v, fresh := cell.read()
		return fresh && v.Roll == 2
	}, time.Second, 5*time.Millisecond)
}

func TestAutopilotStopsAndClearsOverrideAtPatternEnd(t *testing.T) {
	cell := &overrideCell{}
	ap := NewAutopilot(cell, testLogger())
	ap.Start(Pattern{Name: "short", Steps: []FlightStep{
		{Roll: 5, DurationMs: 25},
	}})

	require.Eventually(t, func() bool {
		return !ap.Status().Running
	}, time.Second, 5*time.Millisecond, "run should stop itself once its last step completes")

	_, fresh := cell.read()
	assert.False(t, fresh, "override should be cleared once the pattern ends on its own")
}

func TestAutopilotStartReplacesRunningPattern(t *testing.T) {
	cell := &overrideCell{}
	ap := NewAutopilot(cell, testLogger())
	ap.Start(Pattern{Name: "first", Steps: []FlightStep{{Roll: 1, DurationMs: 10_000}}})
	ap.Start(Pattern{Name: "second", Steps: []FlightStep{{Roll: 2, DurationMs: 10_000}}})
	defer ap.Stop()

	assert.Equal(t, "second", ap.Status().Pattern)
}

func TestBuiltinPatternsAllHavePositiveDurations(t *testing.T) {
	for name, p := range Patterns {
		require.NotEmpty(t, p.Steps, "pattern %s has no steps", name)
		for i, step := range p.Steps {
			assert.Greater(t, step.DurationMs, 0, "pattern %s step %d has non-positive duration", name, i)
		}
	}
}
