package debounce

import (
	"sync"
	"time"

	"github.com/lzray/focustrace/internal/util"
)

const (
	// DefaultSmartWindow is how close a repeated same-app signal must be
	// to merge into the pending activation instead of starting a new one.
	DefaultSmartWindow = 8 * time.Second

	// DefaultSettleDelay is how long the pending activation sits without
	// updates before it flushes downstream.
	DefaultSettleDelay = 500 * time.Millisecond
)

// Activation is one logical foreground activation after coalescing
type Activation struct {
	AppId     string
	AppName   string
	Timestamp time.Time
}

// Debouncer merges rapid repeated focus signals for the same application
// into one logical activation. At most one settle timer is in flight; a
// qualifying same-app signal resets it, anything else flushes the old
// pending activation and starts a new one.
type Debouncer struct {
	mu          sync.Mutex
	smartWindow time.Duration
	settleDelay time.Duration
	emit        func(Activation)
	pending     *Activation
	timer       *time.Timer
	generation  uint64
	closed      bool
}

// New creates a debouncer with the default window and settle delay
func New(emit func(Activation)) *Debouncer {
	return NewWithConfig(DefaultSmartWindow, DefaultSettleDelay, emit)
}

// NewWithConfig creates a debouncer with explicit timing parameters
func NewWithConfig(smartWindow, settleDelay time.Duration, emit func(Activation)) *Debouncer {
	return &Debouncer{
		smartWindow: smartWindow,
		settleDelay: settleDelay,
		emit:        emit,
	}
}

// OnFocusSignal feeds one raw focus-change signal from the host OS
func (d *Debouncer) OnFocusSignal(appId, appName string, timestamp time.Time) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	if d.pending != nil && d.pending.AppId == appId &&
		timestamp.Sub(d.pending.Timestamp) < d.smartWindow {
		// Same app clicked again inside the window: slide the pending
		// activation forward and give it a fresh settle timer.
		d.pending.Timestamp = timestamp
		d.resetTimerLocked()
		d.mu.Unlock()
		return
	}

	flushed := d.takePendingLocked()
	d.pending = &Activation{AppId: appId, AppName: appName, Timestamp: timestamp}
	d.resetTimerLocked()
	d.mu.Unlock()

	if flushed != nil {
		d.emit(*flushed)
	}
}

// Flush synchronously emits any pending activation
func (d *Debouncer) Flush() {
	d.mu.Lock()
	flushed := d.takePendingLocked()
	d.mu.Unlock()

	if flushed != nil {
		d.emit(*flushed)
	}
}

// Close force-flushes the pending activation and stops the debouncer.
// An activation observed before shutdown is never dropped.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	flushed := d.takePendingLocked()
	d.mu.Unlock()

	if flushed != nil {
		util.LogDebugf("Debouncer closing, force-flushing pending activation for %s", flushed.AppId)
		d.emit(*flushed)
	}
}

// takePendingLocked removes and returns the pending activation,
// cancelling its timer. Caller holds the lock and emits after unlocking.
func (d *Debouncer) takePendingLocked() *Activation {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	p := d.pending
	d.pending = nil
	return p
}

// resetTimerLocked restarts the settle timer for the current pending
// activation. The generation counter discards stale timer fires that
// already lost the race against a reset.
func (d *Debouncer) resetTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = time.AfterFunc(d.settleDelay, func() {
		d.onSettle(gen)
	})
}

func (d *Debouncer) onSettle(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.generation || d.pending == nil {
		d.mu.Unlock()
		return
	}
	flushed := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.emit(*flushed)
}
