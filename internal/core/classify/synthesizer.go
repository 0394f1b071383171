package classify

import (
	"github.com/lzray/focustrace/internal/core/model"
	"github.com/lzray/focustrace/internal/util"
)

// Synthesizer turns classified events into context-switch records,
// filtering out transitions that are not meaningful task switches.
type Synthesizer struct{}

// NewSynthesizer creates a synthesizer
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize walks adjacent processed-event pairs and emits one
// ContextSwitch per included pair. Flips inside a rapid group are
// swallowed; the transition out of the group is a real switch anchored
// at the group's last member. A quick reference counts only when it
// immediately precedes real work.
func (s *Synthesizer) Synthesize(processed []model.ProcessedEvent) []model.ContextSwitch {
	switches := make([]model.ContextSwitch, 0)

	for i := 0; i+1 < len(processed); i++ {
		current := processed[i]
		next := processed[i+1]

		if current.AppId() == next.AppId() {
			continue
		}
		if !includeSwitch(current.Tag, next.Tag) {
			continue
		}

		timeSpent := next.EffectiveTime.Sub(current.AnchorTime()).Seconds()
		if timeSpent < 0 {
			util.LogWarnf("Clamping negative dwell %.1fs between %s and %s",
				timeSpent, current.AppId(), next.AppId())
			timeSpent = 0
		}

		from := current.First()
		to := next.First()
		switches = append(switches, model.ContextSwitch{
			Id:           model.NewID(),
			FromAppId:    from.AppId,
			ToAppId:      to.AppId,
			FromAppName:  from.AppName,
			ToAppName:    to.AppName,
			Timestamp:    next.EffectiveTime,
			TimeSpent:    timeSpent,
			SwitchType:   model.SwitchTypeFor(timeSpent),
			FromCategory: from.Category,
			ToCategory:   to.Category,
			SessionId:    to.SessionId,
		})
	}

	return switches
}

// includeSwitch decides whether the transition out of current counts as
// a real task switch.
func includeSwitch(current, next model.ClassificationTag) bool {
	switch current {
	case model.TagRapidActivationGroup:
		// The group already swallowed its internal flips; leaving it for
		// another application is a real switch.
		return true
	case model.TagMeaningfulSwitch, model.TagFocusSession:
		return true
	case model.TagQuickReference:
		// A quick check right before real work is recorded; two quick
		// checks in a row are not.
		return next == model.TagMeaningfulSwitch || next == model.TagFocusSession
	case model.TagIsolated:
		// Conservative default: always record.
		return true
	default:
		return false
	}
}
