package feed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"github.com/lzray/focustrace/internal/util"
)

// FocusSignal is one raw focus-change notification from the host OS,
// one JSON object per line in the spool file.
type FocusSignal struct {
	AppId     string    `json:"app_id"`
	AppName   string    `json:"app_name"`
	Timestamp time.Time `json:"timestamp"`
}

// spoolPosition is the persisted resume point in the spool file
type spoolPosition struct {
	Inode  uint64 `json:"inode"`
	Offset int64  `json:"offset"`
}

// Watcher tails a JSONL spool file that the OS focus hook appends to,
// delivering parsed signals on a channel. The spool's inode and size are
// tracked so a rotated or truncated file restarts from the beginning,
// and the read offset is persisted so a restart does not re-ingest.
type Watcher struct {
	spoolPath  string
	offsetPath string
	watcher    *fsnotify.Watcher
	signals    chan FocusSignal
	done       chan struct{}

	mu     sync.Mutex
	pos    spoolPosition
	closed bool
}

// NewWatcher creates a spool watcher and begins tailing. Any lines
// already present past the persisted offset are delivered first.
func NewWatcher(spoolPath, offsetPath string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory so a spool file created later is picked up.
	spoolDir := filepath.Dir(spoolPath)
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if err := fsWatcher.Add(spoolDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		spoolPath:  spoolPath,
		offsetPath: offsetPath,
		watcher:    fsWatcher,
		signals:    make(chan FocusSignal, 100),
		done:       make(chan struct{}),
	}
	w.loadPosition()

	go w.processEvents()
	w.readAvailable()
	return w, nil
}

// Signals returns the channel of parsed focus signals
func (w *Watcher) Signals() <-chan FocusSignal {
	return w.signals
}

// Close stops watching and persists the read position
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()

	w.mu.Lock()
	w.closed = true
	w.savePositionLocked()
	w.mu.Unlock()

	close(w.signals)
	return err
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.spoolPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.readAvailable()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("Spool watching error: " + err.Error())
		case <-w.done:
			return
		}
	}
}

// readAvailable consumes complete lines appended since the last read
func (w *Watcher) readAvailable() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	info, err := util.GetFileInfo(w.spoolPath)
	if err != nil {
		return
	}

	// A changed inode means the spool was rotated; a shrunken file means
	// it was truncated. Either way the offset no longer applies.
	if w.pos.Inode != 0 && info.Inode != w.pos.Inode {
		util.LogInfo("Spool file rotated, restarting from the beginning")
		w.pos.Offset = 0
	}
	if info.Size < w.pos.Offset {
		util.LogWarn("Spool file truncated, restarting from the beginning")
		w.pos.Offset = 0
	}
	w.pos.Inode = info.Inode

	file, err := os.Open(w.spoolPath)
	if err != nil {
		util.LogErrorf("Failed to open spool file: %v", err)
		return
	}
	defer file.Close()

	if _, err := file.Seek(w.pos.Offset, io.SeekStart); err != nil {
		util.LogErrorf("Failed to seek spool file: %v", err)
		return
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A trailing fragment without a newline is still being
			// written; leave the offset before it and retry on the
			// next event.
			break
		}
		w.pos.Offset += int64(len(line))

		signal, perr := ParseSignal(line)
		if perr != nil {
			util.LogWarnf("Skipping malformed spool line: %v", perr)
			continue
		}
		select {
		case w.signals <- signal:
		case <-w.done:
			return
		}
	}

	w.savePositionLocked()
}

// ParseSignal decodes one spool line into a focus signal
func ParseSignal(line string) (FocusSignal, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return FocusSignal{}, fmt.Errorf("empty line")
	}

	var signal FocusSignal
	if err := sonic.UnmarshalString(line, &signal); err != nil {
		return FocusSignal{}, fmt.Errorf("invalid signal: %w", err)
	}
	if signal.AppId == "" {
		return FocusSignal{}, fmt.Errorf("signal missing app_id")
	}
	if signal.Timestamp.IsZero() {
		return FocusSignal{}, fmt.Errorf("signal missing timestamp")
	}
	if signal.AppName == "" {
		signal.AppName = signal.AppId
	}
	return signal, nil
}

func (w *Watcher) loadPosition() {
	data, err := os.ReadFile(w.offsetPath)
	if err != nil {
		return
	}
	var pos spoolPosition
	if err := sonic.Unmarshal(data, &pos); err != nil {
		util.LogWarnf("Ignoring unreadable spool position: %v", err)
		return
	}
	w.pos = pos
}

func (w *Watcher) savePositionLocked() {
	data, err := sonic.Marshal(w.pos)
	if err != nil {
		return
	}
	if err := os.WriteFile(w.offsetPath, data, 0644); err != nil {
		util.LogWarnf("Failed to persist spool position: %v", err)
	}
}
