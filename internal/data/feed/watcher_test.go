package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
		appId   string
		appName string
	}{
		{
			name:    "complete signal",
			line:    `{"app_id":"com.apple.safari","app_name":"Safari","timestamp":"2026-04-02T09:00:00Z"}`,
			appId:   "com.apple.safari",
			appName: "Safari",
		},
		{
			name:    "app name defaults to app id",
			line:    `{"app_id":"com.apple.safari","timestamp":"2026-04-02T09:00:00Z"}`,
			appId:   "com.apple.safari",
			appName: "com.apple.safari",
		},
		{name: "missing app id", line: `{"timestamp":"2026-04-02T09:00:00Z"}`, wantErr: true},
		{name: "missing timestamp", line: `{"app_id":"com.apple.safari"}`, wantErr: true},
		{name: "empty line", line: "   \n", wantErr: true},
		{name: "malformed json", line: `{"app_id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, err := ParseSignal(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.appId, signal.AppId)
			assert.Equal(t, tt.appName, signal.AppName)
			assert.False(t, signal.Timestamp.IsZero())
		})
	}
}

func receiveSignal(t *testing.T, ch <-chan FocusSignal) FocusSignal {
	t.Helper()
	select {
	case signal := <-ch:
		return signal
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a focus signal")
		return FocusSignal{}
	}
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func TestWatcherDeliversExistingAndAppendedLines(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "focus.jsonl")
	offset := filepath.Join(dir, "focus.jsonl.offset")

	appendLine(t, spool, `{"app_id":"app.a","timestamp":"2026-04-02T09:00:00Z"}`)
	appendLine(t, spool, `{"app_id":"app.b","timestamp":"2026-04-02T09:01:00Z"}`)

	w, err := NewWatcher(spool, offset)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "app.a", receiveSignal(t, w.Signals()).AppId)
	assert.Equal(t, "app.b", receiveSignal(t, w.Signals()).AppId)

	appendLine(t, spool, `{"app_id":"app.c","timestamp":"2026-04-02T09:02:00Z"}`)
	assert.Equal(t, "app.c", receiveSignal(t, w.Signals()).AppId)
}

func TestWatcherSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "focus.jsonl")

	appendLine(t, spool, `not json at all`)
	appendLine(t, spool, `{"app_id":"app.a","timestamp":"2026-04-02T09:00:00Z"}`)

	w, err := NewWatcher(spool, filepath.Join(dir, "offset"))
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "app.a", receiveSignal(t, w.Signals()).AppId)
}

func TestWatcherResumesFromPersistedOffset(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "focus.jsonl")
	offset := filepath.Join(dir, "focus.jsonl.offset")

	appendLine(t, spool, `{"app_id":"app.a","timestamp":"2026-04-02T09:00:00Z"}`)

	first, err := NewWatcher(spool, offset)
	require.NoError(t, err)
	receiveSignal(t, first.Signals())
	require.NoError(t, first.Close())

	appendLine(t, spool, `{"app_id":"app.b","timestamp":"2026-04-02T09:01:00Z"}`)

	second, err := NewWatcher(spool, offset)
	require.NoError(t, err)
	defer second.Close()

	// Only the line appended after the first watcher's offset arrives.
	assert.Equal(t, "app.b", receiveSignal(t, second.Signals()).AppId)
	select {
	case extra, ok := <-second.Signals():
		if ok {
			t.Fatalf("unexpected replayed signal for %s", extra.AppId)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "focus.jsonl")
	offset := filepath.Join(dir, "focus.jsonl.offset")

	appendLine(t, spool, `{"app_id":"app.a","timestamp":"2026-04-02T09:00:00Z"}`)
	appendLine(t, spool, `{"app_id":"app.b","timestamp":"2026-04-02T09:01:00Z"}`)

	w, err := NewWatcher(spool, offset)
	require.NoError(t, err)
	defer w.Close()
	receiveSignal(t, w.Signals())
	receiveSignal(t, w.Signals())

	// Truncate and write a shorter file: the stale offset must not apply.
	require.NoError(t, os.WriteFile(spool, []byte(`{"app_id":"app.c","timestamp":"2026-04-02T09:02:00Z"}`+"\n"), 0644))

	assert.Equal(t, "app.c", receiveSignal(t, w.Signals()).AppId)
}
