package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzray/focustrace/internal/core/model"
)

func synthesize(t *testing.T, events []model.ActivationEvent) []model.ContextSwitch {
	t.Helper()
	processed := NewClassifier().Classify(events)
	return NewSynthesizer().Synthesize(processed)
}

func TestRapidGroupEmitsOneOutboundSwitch(t *testing.T) {
	events := []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.a", 3),
		eventAt("app.a", 7),
		eventAt("app.b", 20),
	}

	switches := synthesize(t, events)
	require.Len(t, switches, 1, "the group's internal flips emit nothing")

	s := switches[0]
	assert.Equal(t, "app.a", s.FromAppId)
	assert.Equal(t, "app.b", s.ToAppId)
	assert.Equal(t, 13.0, s.TimeSpent,
		"dwell anchors at the group's last member, not its head")
	assert.Equal(t, model.SwitchTypeQuick, s.SwitchType)
	assert.True(t, s.Timestamp.Equal(classifierBase.Add(20*time.Second)))
}

func TestSameAppPairSkipped(t *testing.T) {
	events := []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.a", 60),
		eventAt("app.b", 120),
	}

	switches := synthesize(t, events)
	require.Len(t, switches, 1)
	assert.Equal(t, "app.a", switches[0].FromAppId)
	assert.Equal(t, "app.b", switches[0].ToAppId)
}

func TestQuickReferenceIncludedOnlyBeforeRealWork(t *testing.T) {
	// a@0 is a quick reference (9s to b); b@9 is meaningful (60s to c).
	included := synthesize(t, []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.b", 9),
		eventAt("app.c", 69),
		eventAt("app.d", 400),
	})
	fromApps := make([]string, 0, len(included))
	for _, s := range included {
		fromApps = append(fromApps, s.FromAppId)
	}
	assert.Contains(t, fromApps, "app.a",
		"a quick check immediately before real work is recorded")

	// Two quick checks in a row: the first is dropped.
	dropped := synthesize(t, []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.b", 9),
		eventAt("app.c", 18),
	})
	for _, s := range dropped {
		assert.NotEqual(t, "app.a", s.FromAppId,
			"a quick check before another quick check is noise")
	}
}

func TestIsolatedAlwaysIncluded(t *testing.T) {
	// a@0 is meaningful (60s gap), b@60 is isolated (no next event).
	switches := synthesize(t, []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.b", 60),
	})
	require.Len(t, switches, 1)
	assert.Equal(t, "app.a", switches[0].FromAppId)
}

func TestSwitchInvariantsHold(t *testing.T) {
	events := []model.ActivationEvent{
		eventAt("app.a", 0),
		eventAt("app.a", 3),
		eventAt("app.b", 20),
		eventAt("app.c", 35),
		eventAt("app.b", 50),
		eventAt("app.d", 400),
		eventAt("app.a", 420),
	}

	switches := synthesize(t, events)
	require.NotEmpty(t, switches)

	now := time.Now()
	for _, s := range switches {
		assert.NoError(t, s.Validate(now))
		assert.NotEqual(t, s.FromAppId, s.ToAppId)
		assert.GreaterOrEqual(t, s.TimeSpent, 0.0)
	}
}

func TestSwitchCarriesCategoriesAndDestinationSession(t *testing.T) {
	from := eventAt("app.a", 0)
	from.Category = "Development"
	to := eventAt("app.b", 60)
	to.Category = "Communication"
	to.SessionId = "session-2"

	switches := synthesize(t, []model.ActivationEvent{from, to})
	require.Len(t, switches, 1)

	s := switches[0]
	assert.Equal(t, model.Category("Development"), s.FromCategory)
	assert.Equal(t, model.Category("Communication"), s.ToCategory)
	assert.Equal(t, "session-2", s.SessionId)
	assert.Equal(t, model.SwitchTypeNormal, s.SwitchType)
}
