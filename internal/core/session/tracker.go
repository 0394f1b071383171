package session

import (
	"time"

	"github.com/lzray/focustrace/internal/core/model"
	"github.com/lzray/focustrace/internal/util"
)

const (
	// DefaultIdleThreshold is the inter-activation gap that closes a
	// session and opens a new one.
	DefaultIdleThreshold = 300 * time.Second

	// DefaultMaxDuration caps the total span of a single session.
	DefaultMaxDuration = 3600 * time.Second
)

// Assignment is what the tracker stamps onto a new activation event
type Assignment struct {
	SessionId   string
	StartTime   time.Time
	IsStart     bool
	SwitchCount int
}

// Closure reports that the previously open session ended. The caller
// marks that session's terminal event with IsSessionEnd and the end time.
type Closure struct {
	Session model.Session
	EndTime time.Time
}

// Tracker is a two-state machine (NoSession, SessionActive) grouping
// activations into sessions by idle gap and maximum duration. Exactly
// one session is open at a time; closing the old one always precedes
// opening the next.
type Tracker struct {
	idleThreshold  time.Duration
	maxDuration    time.Duration
	current        *model.Session
	lastActivation time.Time
}

// NewTracker creates a tracker with the default thresholds
func NewTracker() *Tracker {
	return NewTrackerWithConfig(DefaultIdleThreshold, DefaultMaxDuration)
}

// NewTrackerWithConfig creates a tracker with explicit thresholds
func NewTrackerWithConfig(idleThreshold, maxDuration time.Duration) *Tracker {
	return &Tracker{
		idleThreshold: idleThreshold,
		maxDuration:   maxDuration,
	}
}

// Observe advances the state machine for an activation at time t and
// returns the session assignment for it, plus a closure for the
// previous session when a boundary was crossed.
func (t *Tracker) Observe(ts time.Time) (Assignment, *Closure) {
	if t.current != nil &&
		ts.Sub(t.lastActivation) < t.idleThreshold &&
		ts.Sub(t.current.StartTime) < t.maxDuration {
		t.current.SwitchCount++
		t.lastActivation = ts
		return Assignment{
			SessionId:   t.current.Id,
			StartTime:   t.current.StartTime,
			IsStart:     false,
			SwitchCount: t.current.SwitchCount,
		}, nil
	}

	var closure *Closure
	if t.current != nil {
		end := t.lastActivation
		closed := *t.current
		closed.EndTime = &end
		closure = &Closure{Session: closed, EndTime: end}
		util.LogDebugf("Session %s closed at %s after %d switches",
			closed.Id, end.Format(time.RFC3339), closed.SwitchCount)
	}

	t.current = &model.Session{
		Id:          model.NewID(),
		StartTime:   ts,
		SwitchCount: 1,
	}
	t.lastActivation = ts
	util.LogDebugf("Session %s opened at %s", t.current.Id, ts.Format(time.RFC3339))

	return Assignment{
		SessionId:   t.current.Id,
		StartTime:   ts,
		IsStart:     true,
		SwitchCount: 1,
	}, closure
}

// Current returns a snapshot of the open session, or nil
func (t *Tracker) Current() *model.Session {
	if t.current == nil {
		return nil
	}
	snapshot := *t.current
	return &snapshot
}
