package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzray/focustrace/internal/core/model"
)

var classifierBase = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func eventAt(appId string, offsetSeconds int) model.ActivationEvent {
	return model.ActivationEvent{
		Id:        model.NewID(),
		Timestamp: classifierBase.Add(time.Duration(offsetSeconds) * time.Second),
		AppId:     appId,
		AppName:   appId,
		SessionId: "session-1",
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	processed := NewClassifier().Classify(nil)
	assert.Empty(t, processed)
}

func TestClassifyRapidGroupIsMaximal(t *testing.T) {
	events := []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.b", 3),
		eventAt("app.a", 7),
		eventAt("app.c", 20),
	}

	processed := NewClassifier().Classify(events)
	require.Len(t, processed, 2)

	group := processed[0]
	assert.Equal(t, model.TagRapidActivationGroup, group.Tag)
	require.Len(t, group.Events, 3, "every event within the window of the head joins")
	assert.True(t, group.EffectiveTime.Equal(events[0].Timestamp),
		"group effective time is the head's timestamp")
	for _, member := range group.Events {
		assert.LessOrEqual(t, member.Timestamp.Sub(group.First().Timestamp), 8*time.Second)
	}

	assert.Equal(t, model.TagIsolated, processed[1].Tag)
}

func TestClassifyWindowBoundary(t *testing.T) {
	// 8s after the head is still inside the window; 9s is not.
	inside := NewClassifier().Classify([]model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.b", 8),
	})
	require.Len(t, inside, 1)
	assert.Equal(t, model.TagRapidActivationGroup, inside[0].Tag)

	outside := NewClassifier().Classify([]model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.b", 9),
	})
	require.Len(t, outside, 2)
	assert.NotEqual(t, model.TagRapidActivationGroup, outside[0].Tag)
}

func TestClassifySingletonDurations(t *testing.T) {
	tests := []struct {
		name       string
		gapSeconds int
		expected   model.ClassificationTag
	}{
		{name: "just under meaningful threshold", gapSeconds: 9, expected: model.TagQuickReference},
		{name: "at meaningful threshold", gapSeconds: 10, expected: model.TagMeaningfulSwitch},
		{name: "just under focus threshold", gapSeconds: 119, expected: model.TagMeaningfulSwitch},
		{name: "at focus threshold", gapSeconds: 120, expected: model.TagFocusSession},
		{name: "long dwell", gapSeconds: 900, expected: model.TagFocusSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processed := NewClassifier().Classify([]model.ActivationEvent{
				eventAt("app.a", 0),
				eventAt("app.b", tt.gapSeconds),
			})
			require.Len(t, processed, 2)
			assert.Equal(t, tt.expected, processed[0].Tag)
			assert.Equal(t, model.TagIsolated, processed[1].Tag,
				"the trailing event has no next event")
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	events := []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.a", 3),
		eventAt("app.b", 30),
		eventAt("app.c", 200),
		eventAt("app.a", 210),
	}

	classifier := NewClassifier()
	first := classifier.Classify(events)
	second := classifier.Classify(events)
	assert.Equal(t, first, second)
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	events := []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.a", 3),
		eventAt("app.b", 30),
	}
	original := make([]model.ActivationEvent, len(events))
	copy(original, events)

	NewClassifier().Classify(events)
	assert.Equal(t, original, events)
}
