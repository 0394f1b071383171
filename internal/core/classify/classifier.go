package classify

import (
	"time"

	"github.com/lzray/focustrace/internal/core/model"
)

const (
	// DefaultRapidWindow groups activations into one noisy interaction
	// when they land within this window of the group head.
	DefaultRapidWindow = 8 * time.Second

	// DefaultMeaningfulThreshold separates a quick reference from a
	// meaningful switch.
	DefaultMeaningfulThreshold = 10 * time.Second

	// DefaultFocusThreshold separates a meaningful switch from a focus
	// session.
	DefaultFocusThreshold = 120 * time.Second
)

// Classifier groups rapid activation bursts and classifies isolated
// activations by dwell duration. Classify is a pure function over a
// chronologically sorted event list: deterministic and idempotent.
type Classifier struct {
	rapidWindow         time.Duration
	meaningfulThreshold time.Duration
	focusThreshold      time.Duration
}

// NewClassifier creates a classifier with the default thresholds
func NewClassifier() *Classifier {
	return NewClassifierWithConfig(DefaultRapidWindow, DefaultMeaningfulThreshold, DefaultFocusThreshold)
}

// NewClassifierWithConfig creates a classifier with explicit thresholds
func NewClassifierWithConfig(rapidWindow, meaningfulThreshold, focusThreshold time.Duration) *Classifier {
	return &Classifier{
		rapidWindow:         rapidWindow,
		meaningfulThreshold: meaningfulThreshold,
		focusThreshold:      focusThreshold,
	}
}

// Classify scans sorted events left to right and emits one processed
// event per input event or rapid group. Groups are maximal: every
// subsequent event within the rapid window of the group head joins it.
func (c *Classifier) Classify(events []model.ActivationEvent) []model.ProcessedEvent {
	processed := make([]model.ProcessedEvent, 0, len(events))

	i := 0
	for i < len(events) {
		head := events[i]

		j := i + 1
		for j < len(events) && events[j].Timestamp.Sub(head.Timestamp) <= c.rapidWindow {
			j++
		}

		if j-i > 1 {
			group := make([]model.ActivationEvent, j-i)
			copy(group, events[i:j])
			processed = append(processed, model.ProcessedEvent{
				Tag:           model.TagRapidActivationGroup,
				Events:        group,
				EffectiveTime: head.Timestamp,
			})
			i = j
			continue
		}

		// Singleton: dwell is measured against the very next event in
		// the full sequence, not just within the rapid window.
		tag := model.TagIsolated
		if i+1 < len(events) {
			duration := events[i+1].Timestamp.Sub(head.Timestamp)
			switch {
			case duration < c.meaningfulThreshold:
				tag = model.TagQuickReference
			case duration < c.focusThreshold:
				tag = model.TagMeaningfulSwitch
			default:
				tag = model.TagFocusSession
			}
		}

		processed = append(processed, model.ProcessedEvent{
			Tag:           tag,
			Events:        []model.ActivationEvent{head},
			EffectiveTime: head.Timestamp,
		})
		i++
	}

	return processed
}
