package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lzray/focustrace/internal/util"
)

const (
	// DefaultMaxBackupsPerEntry is how many timestamped backups each
	// entry keeps; older ones are pruned on write.
	DefaultMaxBackupsPerEntry = 3

	// DefaultBackupRetention bounds the age of any kept backup.
	DefaultBackupRetention = 30 * 24 * time.Hour

	// DefaultSweepInterval is how often the retention sweep runs.
	DefaultSweepInterval = 24 * time.Hour
)

const backupSuffixLayout = "20060102T150405Z"

// EntryOptions tunes an entry store
type EntryOptions struct {
	MaxBackups int
	Retention  time.Duration
}

// EntryStore persists one file per record under a directory, with a
// parallel backup directory holding the N most recent timestamp-suffixed
// copies per entry. Used for larger structured entries that would bloat
// a single collection file.
//
// Like CollectionStore, all I/O runs on one worker goroutine in strict
// submission order.
type EntryStore struct {
	dir       string
	backupDir string
	opts      EntryOptions
	notifier  *Notifier

	requests  chan func()
	done      chan struct{}
	sweepStop chan struct{}
}

// NewEntryStore creates an entry store and starts its worker
func NewEntryStore(dir, backupDir string, notifier *Notifier, opts EntryOptions) *EntryStore {
	if opts.MaxBackups == 0 {
		opts.MaxBackups = DefaultMaxBackupsPerEntry
	}
	if opts.Retention == 0 {
		opts.Retention = DefaultBackupRetention
	}

	s := &EntryStore{
		dir:       dir,
		backupDir: backupDir,
		opts:      opts,
		notifier:  notifier,
		requests:  make(chan func(), 16),
		done:      make(chan struct{}),
		sweepStop: make(chan struct{}),
	}

	go s.worker()
	return s
}

func (s *EntryStore) worker() {
	defer close(s.done)
	for fn := range s.requests {
		fn()
	}
}

// SaveEntry durably writes one named entry
func (s *EntryStore) SaveEntry(name string, value any) error {
	reply := make(chan error, 1)
	s.requests <- func() { reply <- s.doSave(name, value) }
	return <-reply
}

// LoadEntry reads one named entry into out, recovering from the newest
// usable backup when the primary is missing or corrupt.
func (s *EntryStore) LoadEntry(name string, out any) error {
	reply := make(chan error, 1)
	s.requests <- func() { reply <- s.doLoad(name, out) }
	return <-reply
}

// ListEntries returns the names of all stored entries
func (s *EntryStore) ListEntries() ([]string, error) {
	type result struct {
		names []string
		err   error
	}
	reply := make(chan result, 1)
	s.requests <- func() {
		names, err := s.doList()
		reply <- result{names, err}
	}
	r := <-reply
	return r.names, r.err
}

// Sweep deletes backups older than the retention window and returns the
// number removed.
func (s *EntryStore) Sweep() int {
	reply := make(chan int, 1)
	s.requests <- func() { reply <- s.doSweep(time.Now()) }
	return <-reply
}

// StartSweeper runs Sweep on a fixed interval until Close
func (s *EntryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					util.LogInfof("Entry store sweep removed %d expired backups", removed)
				}
			case <-s.sweepStop:
				return
			}
		}
	}()
}

// Close stops the sweeper and the worker
func (s *EntryStore) Close() {
	close(s.sweepStop)
	close(s.requests)
	<-s.done
}

func (s *EntryStore) doSave(name string, value any) error {
	if err := validateEntryName(name); err != nil {
		return s.fail(newError(KindValidation, name, err))
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return s.fail(newError(KindCorruption, name, fmt.Errorf("failed to create entry directory: %w", err)))
	}

	payload, err := sonic.MarshalIndent(value, "", "  ")
	if err != nil {
		return s.fail(newError(KindValidation, name, fmt.Errorf("failed to serialize entry: %w", err)))
	}

	// Snapshot the current file into the backup directory before the
	// write, then prune anything beyond the per-entry cap.
	path := s.entryPath(name)
	if _, err := os.Stat(path); err == nil {
		if err := s.backupEntry(name, path); err != nil {
			berr := newError(KindBackup, name, err)
			util.LogWarn(berr.Error())
			s.notifier.publishError(berr)
		}
		s.pruneBackups(name)
	}

	if free, err := util.FreeDiskSpace(s.dir); err != nil {
		util.LogWarnf("Entry %s: free-space check failed: %v", name, err)
	} else if free < MinFreeBytes {
		return s.fail(newError(KindCapacity, name,
			fmt.Errorf("free disk space %d bytes below floor %d", free, MinFreeBytes)))
	}

	if err := atomicWrite(path, payload); err != nil {
		return s.fail(newError(KindCorruption, name, err))
	}
	return nil
}

func (s *EntryStore) doLoad(name string, out any) error {
	path := s.entryPath(name)

	data, err := os.ReadFile(path)
	if err == nil {
		if decodeErr := sonic.Unmarshal(data, out); decodeErr == nil {
			return nil
		} else {
			err = decodeErr
		}
	}
	util.LogWarnf("Entry %s: primary load failed: %v, trying backups", name, err)

	for _, backup := range s.backupsFor(name) {
		data, backupErr := os.ReadFile(backup)
		if backupErr != nil {
			continue
		}
		if decodeErr := sonic.Unmarshal(data, out); decodeErr != nil {
			util.LogWarnf("Entry %s: backup %s is unusable: %v", name, filepath.Base(backup), decodeErr)
			continue
		}
		if repairErr := atomicWrite(path, data); repairErr != nil {
			util.LogWarnf("Entry %s: failed to repair primary: %v", name, repairErr)
		} else {
			util.LogInfof("Entry %s: recovered from backup %s", name, filepath.Base(backup))
		}
		return nil
	}

	return s.fail(newError(KindRecovery, name,
		fmt.Errorf("primary failed (%v) and no usable backup exists", err)))
}

func (s *EntryStore) doList() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *EntryStore) doSweep(now time.Time) int {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return 0
	}

	removed := 0
	cutoff := now.Add(-s.opts.Retention)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := backupTimestamp(entry.Name())
		if !ok {
			continue
		}
		if ts.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.backupDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}

func (s *EntryStore) entryPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// backupEntry copies the current entry file to a timestamp-suffixed
// name in the backup directory.
func (s *EntryStore) backupEntry(name, path string) error {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	backupPath := filepath.Join(s.backupDir,
		fmt.Sprintf("%s.%s.json", name, util.BackupSuffix(time.Now())))
	if err := copyFile(path, backupPath); err != nil {
		return fmt.Errorf("failed to back up entry: %w", err)
	}
	return nil
}

// pruneBackups keeps only the newest MaxBackups backups for an entry
func (s *EntryStore) pruneBackups(name string) {
	backups := s.backupsFor(name)
	for _, old := range backups[min(len(backups), s.opts.MaxBackups):] {
		if err := os.Remove(old); err != nil {
			util.LogWarnf("Entry %s: failed to prune backup %s: %v", name, filepath.Base(old), err)
		}
	}
}

// backupsFor returns the entry's backup paths, newest first
func (s *EntryStore) backupsFor(name string) []string {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil
	}

	prefix := name + "."
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".json") {
			backups = append(backups, filepath.Join(s.backupDir, entry.Name()))
		}
	}
	// Timestamp suffixes sort lexically, so reverse order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups
}

func (s *EntryStore) fail(err *Error) error {
	util.LogError(err.Error())
	s.notifier.publishError(err)
	return err
}

// backupTimestamp extracts the timestamp from a backup filename of the
// form <name>.<timestamp>.json.
func backupTimestamp(filename string) (time.Time, bool) {
	trimmed := strings.TrimSuffix(filename, ".json")
	idx := strings.LastIndex(trimmed, ".")
	if idx < 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse(backupSuffixLayout, trimmed[idx+1:])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func validateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("entry name is empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("entry name %q contains path separators", name)
	}
	return nil
}
