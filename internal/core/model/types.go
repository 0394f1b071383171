package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category classifies an application (work, communication, browsing...).
// Category persistence lives outside this module; the core only carries
// the resolved name.
type Category string

// CategoryOther is the fallback category for unknown applications.
const CategoryOther Category = "Other"

// ClassificationTag labels the output of the smart switch classifier.
type ClassificationTag string

const (
	TagRapidActivationGroup ClassificationTag = "rapidActivationGroup"
	TagQuickReference       ClassificationTag = "quickReference"
	TagMeaningfulSwitch     ClassificationTag = "meaningfulSwitch"
	TagFocusSession         ClassificationTag = "focusSession"
	TagIsolated             ClassificationTag = "isolated"
)

// SwitchType is the persisted label on a ContextSwitch. Its cutoffs are
// intentionally independent of the classifier thresholds: the classifier
// describes the event stream, the switch type describes dwell on the
// destination as stored.
type SwitchType string

const (
	SwitchTypeQuick   SwitchType = "quick"
	SwitchTypeNormal  SwitchType = "normal"
	SwitchTypeFocused SwitchType = "focused"
)

// Switch type dwell cutoffs in seconds.
const (
	SwitchQuickMaxSeconds  = 30.0
	SwitchNormalMaxSeconds = 300.0
)

// SwitchTypeFor maps a dwell time in seconds to the persisted label.
func SwitchTypeFor(seconds float64) SwitchType {
	switch {
	case seconds < SwitchQuickMaxSeconds:
		return SwitchTypeQuick
	case seconds < SwitchNormalMaxSeconds:
		return SwitchTypeNormal
	default:
		return SwitchTypeFocused
	}
}

// ActivationEvent records that an application became foreground-focused.
// Immutable once created, except the enrichment fields (tab title, URL,
// icon) which external resolvers patch in later, and the session-end
// flags which the session tracker sets when the following activation
// closes the session.
type ActivationEvent struct {
	Id                 string     `json:"id"`
	Timestamp          time.Time  `json:"timestamp"`
	AppId              string     `json:"appId"`
	AppName            string     `json:"appName"`
	Category           Category   `json:"category"`
	SessionId          string     `json:"sessionId"`
	SessionStartTime   time.Time  `json:"sessionStartTime"`
	IsSessionStart     bool       `json:"isSessionStart"`
	IsSessionEnd       bool       `json:"isSessionEnd"`
	SessionEndTime     *time.Time `json:"sessionEndTime,omitempty"`
	SessionSwitchCount int        `json:"sessionSwitchCount"`
	TabTitle           string     `json:"tabTitle,omitempty"`
	TabUrl             string     `json:"tabUrl,omitempty"`
	IconPath           string     `json:"iconPath,omitempty"`
}

// RecordID implements store.Record
func (e ActivationEvent) RecordID() string { return e.Id }

// RecordTime implements store.Record
func (e ActivationEvent) RecordTime() time.Time { return e.Timestamp }

// Validate checks the semantic rules for a persisted activation event
func (e ActivationEvent) Validate(now time.Time) error {
	if e.Id == "" {
		return fmt.Errorf("activation event has empty id")
	}
	if e.AppId == "" {
		return fmt.Errorf("activation event %s has empty appId", e.Id)
	}
	if e.AppName == "" {
		return fmt.Errorf("activation event %s has empty appName", e.Id)
	}
	if e.SessionId == "" {
		return fmt.Errorf("activation event %s has empty sessionId", e.Id)
	}
	if e.Timestamp.After(now.Add(time.Hour)) {
		return fmt.Errorf("activation event %s timestamp %s is too far in the future",
			e.Id, e.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Metadata carries asynchronously resolved enrichment for an activation
// event. Zero-valued fields leave the existing value untouched.
type Metadata struct {
	TabTitle string `json:"tabTitle,omitempty"`
	TabUrl   string `json:"tabUrl,omitempty"`
	IconPath string `json:"iconPath,omitempty"`
}

// ContextSwitch is a derived record of a transition between two
// foreground applications. Created only by the synthesizer; immutable.
type ContextSwitch struct {
	Id           string     `json:"id"`
	FromAppId    string     `json:"fromAppId"`
	ToAppId      string     `json:"toAppId"`
	FromAppName  string     `json:"fromAppName"`
	ToAppName    string     `json:"toAppName"`
	Timestamp    time.Time  `json:"timestamp"`
	TimeSpent    float64    `json:"timeSpent"` // seconds on the source app
	SwitchType   SwitchType `json:"switchType"`
	FromCategory Category   `json:"fromCategory"`
	ToCategory   Category   `json:"toCategory"`
	SessionId    string     `json:"sessionId"`
}

// RecordID implements store.Record
func (s ContextSwitch) RecordID() string { return s.Id }

// RecordTime implements store.Record
func (s ContextSwitch) RecordTime() time.Time { return s.Timestamp }

// Validate checks the semantic rules for a persisted context switch
func (s ContextSwitch) Validate(now time.Time) error {
	if s.Id == "" {
		return fmt.Errorf("context switch has empty id")
	}
	if s.FromAppId == "" || s.ToAppId == "" {
		return fmt.Errorf("context switch %s has empty app identifier", s.Id)
	}
	if s.FromAppId == s.ToAppId {
		return fmt.Errorf("context switch %s has identical endpoints %s", s.Id, s.FromAppId)
	}
	if s.TimeSpent < 0 {
		return fmt.Errorf("context switch %s has negative timeSpent %.1f", s.Id, s.TimeSpent)
	}
	if s.Timestamp.After(now.Add(time.Hour)) {
		return fmt.Errorf("context switch %s timestamp %s is too far in the future",
			s.Id, s.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Session is a bounded run of activations. At most one session is open
// at a time; EndTime is nil while open.
type Session struct {
	Id          string     `json:"id"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	SwitchCount int        `json:"switchCount"`
}

// ProcessedEvent is the transient classifier output: one per input
// event or rapid group. Not persisted; recomputed from stored events.
type ProcessedEvent struct {
	Tag           ClassificationTag
	Events        []ActivationEvent
	EffectiveTime time.Time
}

// AppId returns the application identifier of the group head
func (p ProcessedEvent) AppId() string {
	if len(p.Events) == 0 {
		return ""
	}
	return p.Events[0].AppId
}

// First returns the group head event
func (p ProcessedEvent) First() ActivationEvent {
	return p.Events[0]
}

// Last returns the final member event
func (p ProcessedEvent) Last() ActivationEvent {
	return p.Events[len(p.Events)-1]
}

// AnchorTime is where dwell measurement starts for the following
// transition: the last member of a rapid group, otherwise the event's
// own effective timestamp.
func (p ProcessedEvent) AnchorTime() time.Time {
	if p.Tag == TagRapidActivationGroup {
		return p.Last().Timestamp
	}
	return p.EffectiveTime
}

// ProductivityMetrics is the derived summary over a window of
// processed events.
type ProductivityMetrics struct {
	QuickChecks        int           `json:"quickChecks"`
	MeaningfulSwitches int           `json:"meaningfulSwitches"`
	FocusSessions      int           `json:"focusSessions"`
	RapidGroups        int           `json:"rapidGroups"`
	TotalFocusTime     time.Duration `json:"totalFocusTime"`
	Score              float64       `json:"score"`
	Level              string        `json:"level"`
}

// NewID returns a fresh unique record identifier
func NewID() string {
	return uuid.NewString()
}
