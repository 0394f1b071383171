package repository

import (
	"sync"
	"time"

	"github.com/lzray/focustrace/internal/core/category"
	"github.com/lzray/focustrace/internal/core/classify"
	"github.com/lzray/focustrace/internal/core/debounce"
	"github.com/lzray/focustrace/internal/core/model"
	"github.com/lzray/focustrace/internal/core/session"
	"github.com/lzray/focustrace/internal/data/store"
	"github.com/lzray/focustrace/internal/util"
)

// Collection names on disk.
const (
	ActivationsCollection = "activations"
	SwitchesCollection    = "context_switches"
)

const (
	// DefaultMaxLiveEvents caps the in-memory (and persisted) history;
	// older events are pruned past this.
	DefaultMaxLiveEvents = 10000

	// DefaultPruneInterval is how often retention pruning runs.
	DefaultPruneInterval = 10 * time.Minute

	enrichQueueSize = 256
)

// SessionArchive is the per-session entry persisted through the entry
// store when a session closes.
type SessionArchive struct {
	Session model.Session           `json:"session"`
	Events  []model.ActivationEvent `json:"events"`
}

// Config tunes the repository
type Config struct {
	MaxLiveEvents int
	PruneInterval time.Duration

	// Notifier carries store error events. When nil the repository
	// creates its own; passing one lets several stores share a stream.
	Notifier *store.Notifier

	// SessionClosed, when set, is called with each closed session and
	// its activation events, outside the repository lock. Used for
	// per-session archival.
	SessionClosed func(closed model.Session, events []model.ActivationEvent)
}

type enrichTask struct {
	eventId string
	meta    model.Metadata
}

// Repository owns the activation and context-switch collections. It is
// the single writer: the debounced ingestion path appends through
// RecordActivation, enrichment patches go through a task queue, and all
// external readers get copied snapshots. Disk I/O happens on the store
// workers, never on the caller.
type Repository struct {
	mu       sync.RWMutex
	events   []model.ActivationEvent
	switches []model.ContextSwitch

	eventStore  *store.CollectionStore[model.ActivationEvent]
	switchStore *store.CollectionStore[model.ContextSwitch]
	notifier    *store.Notifier

	tracker  *session.Tracker
	resolver category.Resolver

	enrichQueue   chan enrichTask
	enrichDone    chan struct{}
	pruneStop     chan struct{}
	maxLive       int
	sessionClosed func(closed model.Session, events []model.ActivationEvent)
}

// New creates a repository over the given data directory and loads any
// existing history through the store's recovery chain.
func New(dataDir string, resolver category.Resolver, tracker *session.Tracker, cfg Config) *Repository {
	if cfg.MaxLiveEvents <= 0 {
		cfg.MaxLiveEvents = DefaultMaxLiveEvents
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = DefaultPruneInterval
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = store.NewNotifier()
	}
	r := &Repository{
		eventStore: store.NewCollectionStore[model.ActivationEvent](
			dataDir, ActivationsCollection, notifier, store.Options{VerifyAfterWrite: true}),
		switchStore: store.NewCollectionStore[model.ContextSwitch](
			dataDir, SwitchesCollection, notifier, store.Options{VerifyAfterWrite: true}),
		notifier:    notifier,
		tracker:     tracker,
		resolver:    resolver,
		enrichQueue: make(chan enrichTask, enrichQueueSize),
		enrichDone:  make(chan struct{}),
		pruneStop:   make(chan struct{}),
		maxLive:     cfg.MaxLiveEvents,

		sessionClosed: cfg.SessionClosed,
	}

	events, err := r.eventStore.Load()
	if err != nil {
		util.LogWarnf("Starting with empty activation history: %v", err)
	}
	switches, err := r.switchStore.Load()
	if err != nil {
		util.LogWarnf("Starting with empty context-switch history: %v", err)
	}
	r.events = events
	r.switches = switches
	util.LogInfof("Repository loaded %d activations and %d context switches",
		len(events), len(switches))

	go r.enrichWorker()
	go r.pruneLoop(cfg.PruneInterval)
	return r
}

// RecordActivation ingests one debounced logical activation: the session
// tracker assigns session fields, the category resolver fills the
// category, and the updated collection is persisted asynchronously.
func (r *Repository) RecordActivation(act debounce.Activation) model.ActivationEvent {
	r.mu.Lock()

	assignment, closure := r.tracker.Observe(act.Timestamp)
	var closedEvents []model.ActivationEvent
	if closure != nil {
		r.markSessionEndLocked(closure.Session.Id, closure.EndTime)
		if r.sessionClosed != nil {
			closedEvents = r.sessionEventsLocked(closure.Session.Id)
		}
	}

	event := model.ActivationEvent{
		Id:                 model.NewID(),
		Timestamp:          act.Timestamp,
		AppId:              act.AppId,
		AppName:            act.AppName,
		Category:           r.resolver.Resolve(act.AppId),
		SessionId:          assignment.SessionId,
		SessionStartTime:   assignment.StartTime,
		IsSessionStart:     assignment.IsStart,
		SessionSwitchCount: assignment.SwitchCount,
	}
	r.events = append(r.events, event)
	snapshot := copyEvents(r.events)
	r.mu.Unlock()

	if closure != nil && r.sessionClosed != nil {
		r.sessionClosed(closure.Session, closedEvents)
	}
	r.eventStore.SaveAsync(snapshot)
	return event
}

// sessionEventsLocked collects the events belonging to one session
func (r *Repository) sessionEventsLocked(sessionId string) []model.ActivationEvent {
	var events []model.ActivationEvent
	for _, event := range r.events {
		if event.SessionId == sessionId {
			events = append(events, event)
		}
	}
	return events
}

// markSessionEndLocked flags the terminal event of a closed session
func (r *Repository) markSessionEndLocked(sessionId string, endTime time.Time) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].SessionId == sessionId {
			end := endTime
			r.events[i].IsSessionEnd = true
			r.events[i].SessionEndTime = &end
			return
		}
	}
}

// AttachMetadata queues an enrichment patch for an already-recorded
// event. Fire-and-forget: a full queue drops the patch rather than
// blocking ingestion.
func (r *Repository) AttachMetadata(eventId string, meta model.Metadata) {
	select {
	case r.enrichQueue <- enrichTask{eventId: eventId, meta: meta}:
	default:
		util.LogWarnf("Enrichment queue full, dropping metadata for event %s", eventId)
	}
}

func (r *Repository) enrichWorker() {
	defer close(r.enrichDone)
	for task := range r.enrichQueue {
		r.applyMetadata(task.eventId, task.meta)
	}
}

func (r *Repository) applyMetadata(eventId string, meta model.Metadata) {
	r.mu.Lock()
	patched := false
	for i := range r.events {
		if r.events[i].Id != eventId {
			continue
		}
		if meta.TabTitle != "" {
			r.events[i].TabTitle = meta.TabTitle
		}
		if meta.TabUrl != "" {
			r.events[i].TabUrl = meta.TabUrl
		}
		if meta.IconPath != "" {
			r.events[i].IconPath = meta.IconPath
		}
		patched = true
		break
	}
	var snapshot []model.ActivationEvent
	if patched {
		snapshot = copyEvents(r.events)
	}
	r.mu.Unlock()

	if patched {
		r.eventStore.SaveAsync(snapshot)
	} else {
		util.LogDebugf("Enrichment for unknown event %s ignored", eventId)
	}
}

// RebuildSwitches reclassifies the full activation history and replaces
// the stored context switches with the synthesized result.
func (r *Repository) RebuildSwitches(classifier *classify.Classifier, synthesizer *classify.Synthesizer) ([]model.ContextSwitch, error) {
	r.mu.RLock()
	events := copyEvents(r.events)
	r.mu.RUnlock()

	processed := classifier.Classify(events)
	switches := synthesizer.Synthesize(processed)

	if err := r.switchStore.Save(switches); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.switches = switches
	r.mu.Unlock()
	return copySwitches(switches), nil
}

// Events returns an immutable snapshot of the activation history
func (r *Repository) Events() []model.ActivationEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyEvents(r.events)
}

// Switches returns an immutable snapshot of the context switches
func (r *Repository) Switches() []model.ContextSwitch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copySwitches(r.switches)
}

// Errors returns the subscribable store error stream
func (r *Repository) Errors() <-chan store.ErrorEvent {
	return r.notifier.Subscribe()
}

// Clear empties both collections, in memory and on disk
func (r *Repository) Clear() error {
	r.mu.Lock()
	r.events = nil
	r.switches = nil
	r.mu.Unlock()

	if err := r.eventStore.Save([]model.ActivationEvent{}); err != nil {
		return err
	}
	return r.switchStore.Save([]model.ContextSwitch{})
}

func (r *Repository) pruneLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.prune()
		case <-r.pruneStop:
			return
		}
	}
}

// prune drops the oldest events past the live cap. Runs off the
// ingestion path and holds no lock across I/O.
func (r *Repository) prune() {
	r.mu.Lock()
	if len(r.events) <= r.maxLive {
		r.mu.Unlock()
		return
	}
	dropped := len(r.events) - r.maxLive
	r.events = copyEvents(r.events[dropped:])
	snapshot := copyEvents(r.events)
	r.mu.Unlock()

	util.LogInfof("Pruned %d activation events past the %d live cap", dropped, r.maxLive)
	r.eventStore.SaveAsync(snapshot)
}

// Close flushes the enrichment queue and shuts down the stores
func (r *Repository) Close() {
	close(r.pruneStop)
	close(r.enrichQueue)
	<-r.enrichDone
	r.eventStore.Close()
	r.switchStore.Close()
	r.notifier.Close()
}

func copyEvents(events []model.ActivationEvent) []model.ActivationEvent {
	out := make([]model.ActivationEvent, len(events))
	copy(out, events)
	return out
}

func copySwitches(switches []model.ContextSwitch) []model.ContextSwitch {
	out := make([]model.ContextSwitch, len(switches))
	copy(out, switches)
	return out
}
