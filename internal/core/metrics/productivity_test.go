package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lzray/focustrace/internal/core/model"
)

func processedAt(tag model.ClassificationTag, offsetSeconds int) model.ProcessedEvent {
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	ts := base.Add(time.Duration(offsetSeconds) * time.Second)
	return model.ProcessedEvent{
		Tag:           tag,
		Events:        []model.ActivationEvent{{Id: model.NewID(), Timestamp: ts, AppId: "app"}},
		EffectiveTime: ts,
	}
}

func TestComputeEmptyWindowScoresFull(t *testing.T) {
	m := NewAggregator().Compute(nil)
	assert.Equal(t, 100.0, m.Score, "nothing happened, so nothing was distracting")
	assert.Equal(t, LevelHighlyFocused, m.Level)
	assert.Zero(t, m.TotalFocusTime)
}

func TestComputeTallies(t *testing.T) {
	processed := []model.ProcessedEvent{
		processedAt(model.TagQuickReference, 0),
		processedAt(model.TagMeaningfulSwitch, 10),
		processedAt(model.TagFocusSession, 60),
		processedAt(model.TagRapidActivationGroup, 400),
		processedAt(model.TagIsolated, 500),
	}

	m := NewAggregator().Compute(processed)
	assert.Equal(t, 1, m.QuickChecks)
	assert.Equal(t, 1, m.MeaningfulSwitches)
	assert.Equal(t, 1, m.FocusSessions)
	assert.Equal(t, 1, m.RapidGroups)
}

func TestFocusTimeUsesGapToNextEvent(t *testing.T) {
	processed := []model.ProcessedEvent{
		processedAt(model.TagFocusSession, 0),
		processedAt(model.TagQuickReference, 300),
	}

	m := NewAggregator().Compute(processed)
	assert.Equal(t, 300*time.Second, m.TotalFocusTime)
}

func TestTrailingFocusSessionGetsDefaultCredit(t *testing.T) {
	processed := []model.ProcessedEvent{
		processedAt(model.TagFocusSession, 0),
	}

	m := NewAggregator().Compute(processed)
	assert.Equal(t, DefaultTrailingFocusTime, m.TotalFocusTime)
}

func TestScoreWeighting(t *testing.T) {
	tests := []struct {
		name          string
		processed     []model.ProcessedEvent
		expectedScore float64
		expectedLevel string
	}{
		{
			name:          "all focus clamps to 100",
			processed:     []model.ProcessedEvent{processedAt(model.TagFocusSession, 0), processedAt(model.TagFocusSession, 200)},
			expectedScore: 100,
			expectedLevel: LevelHighlyFocused,
		},
		{
			name:          "all rapid clamps to 0",
			processed:     []model.ProcessedEvent{processedAt(model.TagRapidActivationGroup, 0), processedAt(model.TagRapidActivationGroup, 60)},
			expectedScore: 0,
			expectedLevel: LevelHighlyDistracted,
		},
		{
			name:          "all meaningful",
			processed:     []model.ProcessedEvent{processedAt(model.TagMeaningfulSwitch, 0)},
			expectedScore: 100,
			expectedLevel: LevelHighlyFocused,
		},
		{
			name:          "all quick",
			processed:     []model.ProcessedEvent{processedAt(model.TagQuickReference, 0), processedAt(model.TagQuickReference, 30)},
			expectedScore: 75,
			expectedLevel: LevelModeratelyFocused,
		},
		{
			name: "mixed rapid and quick",
			// weighted average = (0.5 - 1) / 2 = -0.25; score = 37.5
			processed:     []model.ProcessedEvent{processedAt(model.TagQuickReference, 0), processedAt(model.TagRapidActivationGroup, 30)},
			expectedScore: 37.5,
			expectedLevel: LevelScatteredAttention,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAggregator().Compute(tt.processed)
			assert.InDelta(t, tt.expectedScore, m.Score, 0.001)
			assert.Equal(t, tt.expectedLevel, m.Level)
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{score: 100, expected: LevelHighlyFocused},
		{score: 80, expected: LevelHighlyFocused},
		{score: 79.9, expected: LevelModeratelyFocused},
		{score: 60, expected: LevelModeratelyFocused},
		{score: 59.9, expected: LevelMixedFocus},
		{score: 40, expected: LevelMixedFocus},
		{score: 39.9, expected: LevelScatteredAttention},
		{score: 20, expected: LevelScatteredAttention},
		{score: 19.9, expected: LevelHighlyDistracted},
		{score: 0, expected: LevelHighlyDistracted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelFor(tt.score), "score %.1f", tt.score)
	}
}
