package metrics

import (
	"time"

	"github.com/lzray/focustrace/internal/core/model"
)

// DefaultTrailingFocusTime is credited to a focus session that has no
// following event in the window.
const DefaultTrailingFocusTime = 120 * time.Second

// Classification weights for the productivity score.
const (
	weightFocus      = 3.0
	weightMeaningful = 1.0
	weightQuick      = 0.5
	weightRapid      = -1.0
)

// Productivity level bands.
const (
	LevelHighlyFocused      = "Highly Focused"
	LevelModeratelyFocused  = "Moderately Focused"
	LevelMixedFocus         = "Mixed Focus"
	LevelScatteredAttention = "Scattered Attention"
	LevelHighlyDistracted   = "Highly Distracted"
)

// Aggregator tallies classified interactions into a 0-100 productivity
// score. Read-only over its input; safe to run on any goroutine.
type Aggregator struct {
	trailingFocusTime time.Duration
}

// NewAggregator creates an aggregator with the default trailing credit
func NewAggregator() *Aggregator {
	return &Aggregator{trailingFocusTime: DefaultTrailingFocusTime}
}

// Compute tallies a window of processed events into productivity metrics
func (a *Aggregator) Compute(processed []model.ProcessedEvent) model.ProductivityMetrics {
	m := model.ProductivityMetrics{}

	for i, p := range processed {
		switch p.Tag {
		case model.TagQuickReference:
			m.QuickChecks++
		case model.TagMeaningfulSwitch:
			m.MeaningfulSwitches++
		case model.TagFocusSession:
			m.FocusSessions++
			if i+1 < len(processed) {
				m.TotalFocusTime += processed[i+1].EffectiveTime.Sub(p.EffectiveTime)
			} else {
				m.TotalFocusTime += a.trailingFocusTime
			}
		case model.TagRapidActivationGroup:
			m.RapidGroups++
		}
	}

	m.Score = a.score(m)
	m.Level = LevelFor(m.Score)
	return m
}

// score computes the weighted, normalized score. Zero interactions score
// a vacuous 100: nothing happened, so nothing was distracting.
func (a *Aggregator) score(m model.ProductivityMetrics) float64 {
	total := m.QuickChecks + m.MeaningfulSwitches + m.FocusSessions + m.RapidGroups
	if total == 0 {
		return 100
	}

	weighted := weightFocus*float64(m.FocusSessions) +
		weightMeaningful*float64(m.MeaningfulSwitches) +
		weightQuick*float64(m.QuickChecks) +
		weightRapid*float64(m.RapidGroups)
	weightedAverage := weighted / float64(total)

	score := (weightedAverage + 1) * 50
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// LevelFor maps a score to its productivity level band
func LevelFor(score float64) string {
	switch {
	case score >= 80:
		return LevelHighlyFocused
	case score >= 60:
		return LevelModeratelyFocused
	case score >= 40:
		return LevelMixedFocus
	case score >= 20:
		return LevelScatteredAttention
	default:
		return LevelHighlyDistracted
	}
}
