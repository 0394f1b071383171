package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu          sync.Mutex
	activations []Activation
}

func (r *recorder) emit(a Activation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, a)
}

func (r *recorder) snapshot() []Activation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Activation, len(r.activations))
	copy(out, r.activations)
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activations)
}

func TestSameAppWithinWindowMerges(t *testing.T) {
	rec := &recorder{}
	d := NewWithConfig(8*time.Second, 20*time.Millisecond, rec.emit)
	defer d.Close()

	base := time.Now()
	d.OnFocusSignal("com.apple.safari", "Safari", base)
	d.OnFocusSignal("com.apple.safari", "Safari", base.Add(3*time.Second))
	d.OnFocusSignal("com.apple.safari", "Safari", base.Add(6*time.Second))

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, "com.apple.safari", got[0].AppId)
	assert.True(t, got[0].Timestamp.Equal(base.Add(6*time.Second)),
		"merged activation carries the latest signal's timestamp")
}

func TestDifferentAppFlushesPending(t *testing.T) {
	rec := &recorder{}
	d := NewWithConfig(8*time.Second, time.Minute, rec.emit)
	defer d.Close()

	base := time.Now()
	d.OnFocusSignal("com.apple.safari", "Safari", base)
	// The settle delay is a minute, so only the app change can flush.
	d.OnFocusSignal("com.microsoft.vscode", "VS Code", base.Add(time.Second))

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "com.apple.safari", got[0].AppId)
}

func TestSameAppOutsideWindowStartsNewActivation(t *testing.T) {
	rec := &recorder{}
	d := NewWithConfig(8*time.Second, time.Minute, rec.emit)
	defer d.Close()

	base := time.Now()
	d.OnFocusSignal("com.apple.safari", "Safari", base)
	d.OnFocusSignal("com.apple.safari", "Safari", base.Add(10*time.Second))

	got := rec.snapshot()
	require.Len(t, got, 1, "a same-app signal outside the window flushes the old pending")
	assert.True(t, got[0].Timestamp.Equal(base))
}

func TestFlushEmitsPending(t *testing.T) {
	rec := &recorder{}
	d := NewWithConfig(8*time.Second, time.Minute, rec.emit)
	defer d.Close()

	d.OnFocusSignal("com.apple.safari", "Safari", time.Now())
	d.Flush()

	assert.Equal(t, 1, rec.count())

	// Nothing pending, second flush is a no-op.
	d.Flush()
	assert.Equal(t, 1, rec.count())
}

func TestCloseForceFlushesPending(t *testing.T) {
	rec := &recorder{}
	d := NewWithConfig(8*time.Second, time.Minute, rec.emit)

	d.OnFocusSignal("com.apple.safari", "Safari", time.Now())
	d.Close()

	require.Equal(t, 1, rec.count(), "pending activation survives shutdown")

	// Signals after close are dropped.
	d.OnFocusSignal("com.microsoft.vscode", "VS Code", time.Now())
	assert.Equal(t, 1, rec.count())

	// Close is idempotent.
	d.Close()
	assert.Equal(t, 1, rec.count())
}

func TestSettleTimerResetOnMerge(t *testing.T) {
	rec := &recorder{}
	d := NewWithConfig(8*time.Second, 50*time.Millisecond, rec.emit)
	defer d.Close()

	base := time.Now()
	d.OnFocusSignal("com.apple.safari", "Safari", base)
	time.Sleep(30 * time.Millisecond)
	d.OnFocusSignal("com.apple.safari", "Safari", base.Add(time.Second))
	time.Sleep(30 * time.Millisecond)

	// The merge restarted the timer, so nothing has settled yet.
	assert.Equal(t, 0, rec.count())

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 5*time.Millisecond)
}
