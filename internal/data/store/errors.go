package store

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrorKind classifies store failures for callers and the error stream.
type ErrorKind string

const (
	// KindValidation: schema or semantic violation, rejected before any mutation.
	KindValidation ErrorKind = "validation"
	// KindCorruption: decode, read, or post-write verify failure.
	KindCorruption ErrorKind = "corruption"
	// KindCapacity: insufficient free disk space.
	KindCapacity ErrorKind = "capacity"
	// KindBackup: backup-copy failure; never blocks the primary write.
	KindBackup ErrorKind = "backup"
	// KindRecovery: both primary and backup paths exhausted.
	KindRecovery ErrorKind = "recovery"
)

// Error is a typed store failure tied to a collection
type Error struct {
	Kind       ErrorKind
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error on collection %q: %v", e.Kind, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, collection string, err error) *Error {
	return &Error{Kind: kind, Collection: collection, Err: err}
}

// IsKind reports whether err is a store error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// ErrorEvent is one entry on the subscribable error stream
type ErrorEvent struct {
	Kind       ErrorKind `json:"kind"`
	Collection string    `json:"collection"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier fans store error events out to subscribers. Publishing never
// blocks: a subscriber that stops draining loses events, not the store.
type Notifier struct {
	mu     sync.Mutex
	subs   []chan ErrorEvent
	closed bool
}

// NewNotifier creates an error-event notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe returns a buffered channel of store error events
func (n *Notifier) Subscribe() <-chan ErrorEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan ErrorEvent, 16)
	if n.closed {
		close(ch)
		return ch
	}
	n.subs = append(n.subs, ch)
	return ch
}

// Publish delivers an event to all current subscribers
func (n *Notifier) Publish(event ErrorEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// publishError mirrors a typed store error onto the stream
func (n *Notifier) publishError(err *Error) {
	if n == nil {
		return
	}
	n.Publish(ErrorEvent{
		Kind:       err.Kind,
		Collection: err.Collection,
		Message:    err.Err.Error(),
		Timestamp:  time.Now(),
	})
}

// Close closes all subscriber channels
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for _, ch := range n.subs {
		close(ch)
	}
	n.subs = nil
}
