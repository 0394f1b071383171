package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuousActivationsShareSession(t *testing.T) {
	tracker := NewTracker()
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	first, closure := tracker.Observe(base)
	require.Nil(t, closure)
	assert.True(t, first.IsStart)
	assert.Equal(t, 1, first.SwitchCount)

	second, closure := tracker.Observe(base.Add(100 * time.Second))
	require.Nil(t, closure)
	assert.False(t, second.IsStart)
	assert.Equal(t, first.SessionId, second.SessionId)
	assert.Equal(t, 2, second.SwitchCount)

	third, closure := tracker.Observe(base.Add(200 * time.Second))
	require.Nil(t, closure)
	assert.Equal(t, first.SessionId, third.SessionId)
	assert.Equal(t, 3, third.SwitchCount)
	assert.True(t, third.StartTime.Equal(base))
}

func TestIdleGapStartsNewSession(t *testing.T) {
	tracker := NewTracker()
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	first, _ := tracker.Observe(base)
	tracker.Observe(base.Add(100 * time.Second))
	tracker.Observe(base.Add(200 * time.Second))

	fourth, closure := tracker.Observe(base.Add(4000 * time.Second))
	require.NotNil(t, closure, "crossing the idle threshold closes the previous session")
	assert.Equal(t, first.SessionId, closure.Session.Id)
	assert.Equal(t, 3, closure.Session.SwitchCount)
	require.NotNil(t, closure.Session.EndTime)
	assert.True(t, closure.EndTime.Equal(base.Add(200*time.Second)),
		"session ends at its last activation, not at the new one")

	assert.NotEqual(t, first.SessionId, fourth.SessionId)
	assert.True(t, fourth.IsStart)
	assert.Equal(t, 1, fourth.SwitchCount)
}

func TestMaxDurationStartsNewSession(t *testing.T) {
	// Idle threshold large enough that only the span cap can trip.
	tracker := NewTrackerWithConfig(1000*time.Second, 3600*time.Second)
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	first, _ := tracker.Observe(base)
	for _, offset := range []int{900, 1800, 2700, 3500} {
		a, closure := tracker.Observe(base.Add(time.Duration(offset) * time.Second))
		require.Nil(t, closure)
		assert.Equal(t, first.SessionId, a.SessionId)
	}

	rolled, closure := tracker.Observe(base.Add(3600 * time.Second))
	require.NotNil(t, closure)
	assert.NotEqual(t, first.SessionId, rolled.SessionId)
	assert.Equal(t, 1, rolled.SwitchCount)
}

func TestCurrentReturnsSnapshot(t *testing.T) {
	tracker := NewTracker()
	assert.Nil(t, tracker.Current())

	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	assignment, _ := tracker.Observe(base)

	current := tracker.Current()
	require.NotNil(t, current)
	assert.Equal(t, assignment.SessionId, current.Id)

	// Mutating the snapshot must not leak into the tracker.
	current.SwitchCount = 99
	assert.Equal(t, 1, tracker.Current().SwitchCount)
}
