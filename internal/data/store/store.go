package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lzray/focustrace/internal/util"
)

// MinFreeBytes is the free-space floor below which writes are refused.
const MinFreeBytes uint64 = 10 * 1024 * 1024

// Options tunes a collection store
type Options struct {
	// VerifyAfterWrite re-reads the written file and byte-compares it
	// against the serialized payload. Enabled for stores that need the
	// strong durability guarantee.
	VerifyAfterWrite bool

	// MinFreeBytes overrides the default free-space floor when non-zero.
	MinFreeBytes uint64
}

// CollectionStore is a crash-safe save/load for one named, ordered
// record collection. Layout: <dataDir>/<name>.json with a single
// <dataDir>/<name>.backup.json refreshed before every write.
//
// All disk I/O runs on one background goroutine per store; requests are
// processed strictly in submission order, so a load submitted after a
// save observes that save.
type CollectionStore[T Record] struct {
	name       string
	path       string
	backupPath string
	opts       Options
	notifier   *Notifier

	// Injectable for capacity tests.
	freeSpace func(path string) (uint64, error)

	requests chan func()
	done     chan struct{}
}

// NewCollectionStore creates a store for the named collection and
// starts its worker goroutine.
func NewCollectionStore[T Record](dataDir, name string, notifier *Notifier, opts Options) *CollectionStore[T] {
	if opts.MinFreeBytes == 0 {
		opts.MinFreeBytes = MinFreeBytes
	}

	s := &CollectionStore[T]{
		name:       name,
		path:       filepath.Join(dataDir, name+".json"),
		backupPath: filepath.Join(dataDir, name+".backup.json"),
		opts:       opts,
		notifier:   notifier,
		freeSpace:  util.FreeDiskSpace,
		requests:   make(chan func(), 16),
		done:       make(chan struct{}),
	}

	go s.worker()
	return s
}

func (s *CollectionStore[T]) worker() {
	defer close(s.done)
	for fn := range s.requests {
		fn()
	}
}

// Save validates and durably persists the full collection
func (s *CollectionStore[T]) Save(records []T) error {
	reply := make(chan error, 1)
	s.requests <- func() { reply <- s.doSave(records) }
	return <-reply
}

// SaveAsync submits a save without waiting for the result. Failures are
// logged and published on the error stream like a synchronous save. Used
// by the ingestion path, which must never block on disk I/O.
func (s *CollectionStore[T]) SaveAsync(records []T) {
	s.requests <- func() {
		// doSave logs and publishes on failure.
		_ = s.doSave(records)
	}
}

// Load reads the collection, falling back to the backup and finally to
// an empty collection. The returned records are in chronological order.
func (s *CollectionStore[T]) Load() ([]T, error) {
	type result struct {
		records []T
		err     error
	}
	reply := make(chan result, 1)
	s.requests <- func() {
		records, err := s.doLoad()
		reply <- result{records, err}
	}
	r := <-reply
	return r.records, r.err
}

// Close drains pending requests and stops the worker
func (s *CollectionStore[T]) Close() {
	close(s.requests)
	<-s.done
}

func (s *CollectionStore[T]) doSave(records []T) error {
	// Validation is fail-fast: no disk state changes on rejection.
	if err := ValidateRecords(s.name, records, time.Now()); err != nil {
		return s.fail(newError(KindValidation, s.name, err))
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s.fail(newError(KindCorruption, s.name, fmt.Errorf("failed to create data directory: %w", err)))
	}

	// Refresh the backup from the current file before anything touches
	// the target. A failed backup copy is logged but never blocks the
	// primary write.
	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.backupPath); err != nil {
			berr := newError(KindBackup, s.name, fmt.Errorf("failed to refresh backup: %w", err))
			util.LogWarn(berr.Error())
			s.notifier.publishError(berr)
		}
	}

	if free, err := s.freeSpace(dir); err != nil {
		util.LogWarnf("Collection %s: free-space check failed: %v", s.name, err)
	} else if free < s.opts.MinFreeBytes {
		return s.fail(newError(KindCapacity, s.name,
			fmt.Errorf("free disk space %d bytes below floor %d", free, s.opts.MinFreeBytes)))
	}

	payload, err := sonic.MarshalIndent(records, "", "  ")
	if err != nil {
		return s.fail(newError(KindCorruption, s.name, fmt.Errorf("failed to serialize: %w", err)))
	}

	if err := atomicWrite(s.path, payload); err != nil {
		return s.fail(newError(KindCorruption, s.name, err))
	}

	if s.opts.VerifyAfterWrite {
		written, err := os.ReadFile(s.path)
		if err != nil {
			return s.fail(newError(KindCorruption, s.name, fmt.Errorf("failed to verify write: %w", err)))
		}
		if !bytes.Equal(written, payload) {
			return s.fail(newError(KindCorruption, s.name,
				fmt.Errorf("verification mismatch: written file differs from payload")))
		}
	}

	util.LogDebugf("Collection %s: saved %d records", s.name, len(records))
	return nil
}

func (s *CollectionStore[T]) doLoad() ([]T, error) {
	records, err := s.readAndDecode(s.path)
	if err == nil {
		return sortChronological(records), nil
	}
	util.LogWarnf("Collection %s: primary load failed: %v, trying backup", s.name, err)

	records, backupErr := s.readAndDecode(s.backupPath)
	if backupErr == nil {
		// The backup is good: repair the (possibly corrupt) primary so
		// the next load succeeds directly.
		if repairErr := copyFile(s.backupPath, s.path); repairErr != nil {
			util.LogWarnf("Collection %s: failed to repair primary from backup: %v", s.name, repairErr)
		} else {
			util.LogInfof("Collection %s: recovered %d records from backup and repaired primary",
				s.name, len(records))
		}
		return sortChronological(records), nil
	}

	rerr := newError(KindRecovery, s.name,
		fmt.Errorf("primary failed (%v) and backup failed (%v)", err, backupErr))
	return []T{}, s.fail(rerr)
}

// readAndDecode loads and validates one file. Any failure makes the
// caller fall through to the next recovery stage.
func (s *CollectionStore[T]) readAndDecode(path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []T
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if err := ValidateRecords(s.name, records, time.Now()); err != nil {
		return nil, fmt.Errorf("loaded records failed validation: %w", err)
	}
	return records, nil
}

// fail logs a typed error, mirrors it on the stream, and returns it
func (s *CollectionStore[T]) fail(err *Error) error {
	util.LogError(err.Error())
	s.notifier.publishError(err)
	return err
}

func sortChronological[T Record](records []T) []T {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RecordTime().Before(records[j].RecordTime())
	})
	return records
}

// atomicWrite writes data to a temporary sibling and renames it over
// the target, so readers only ever see a complete file.
func atomicWrite(path string, data []byte) error {
	tempPath := path + ".tmp"

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies src over dst, replacing any previous dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return atomicWrite(dst, data)
}
