package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lzray/focustrace/internal/core/category"
	"github.com/lzray/focustrace/internal/core/classify"
	"github.com/lzray/focustrace/internal/core/debounce"
	"github.com/lzray/focustrace/internal/core/model"
	"github.com/lzray/focustrace/internal/core/session"
	"github.com/lzray/focustrace/internal/data/feed"
	"github.com/lzray/focustrace/internal/data/repository"
	"github.com/lzray/focustrace/internal/data/store"
	"github.com/lzray/focustrace/internal/util"
)

var (
	// Track command flags
	trackSpoolPath       string
	trackRebuildInterval time.Duration
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the focus-tracking ingestion daemon",
	Long: `Tails the focus-signal spool file, debounces rapid focus changes into
logical activations, assigns session boundaries, and persists activity
and context-switch records until interrupted.`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVar(&trackSpoolPath, "spool", "",
		"Override the focus-signal spool file path")
	trackCmd.Flags().DurationVar(&trackRebuildInterval, "rebuild-interval", 5*time.Minute,
		"How often stored context switches are rebuilt from the event history")
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}
	if trackSpoolPath != "" {
		cfg.SpoolPath = trackSpoolPath
	}

	if _, err := store.MigrateLegacyData(cfg.LegacyDirs, cfg.DataDir); err != nil {
		util.LogWarnf("Legacy data migration failed: %v", err)
	}

	resolver, err := category.NewStaticResolverFromFile(cfg.CategoryRules)
	if err != nil {
		return fmt.Errorf("failed to load category rules: %w", err)
	}

	notifier := store.NewNotifier()
	archiveStore := store.NewEntryStore(
		filepath.Join(cfg.DataDir, "entries"),
		filepath.Join(cfg.DataDir, "entries_backup"),
		notifier,
		store.EntryOptions{
			MaxBackups: cfg.Retention.BackupsPerEntry,
			Retention:  cfg.Retention.BackupRetention(),
		})
	archiveStore.StartSweeper(cfg.Retention.SweepInterval())

	tracker := session.NewTrackerWithConfig(cfg.Thresholds.SessionIdle(), cfg.Thresholds.SessionMax())
	repo := repository.New(cfg.DataDir, resolver, tracker, repository.Config{
		MaxLiveEvents: cfg.Retention.MaxLiveEvents,
		Notifier:      notifier,
		SessionClosed: func(closed model.Session, events []model.ActivationEvent) {
			name := "session-" + closed.Id
			if err := archiveStore.SaveEntry(name, repository.SessionArchive{
				Session: closed,
				Events:  events,
			}); err != nil {
				util.LogWarnf("Failed to archive session %s: %v", closed.Id, err)
			}
		},
	})

	// Surface store errors on the status stream for any attached
	// presentation layer; the stores already log the details.
	errorStream := notifier.Subscribe()
	go func() {
		for event := range errorStream {
			util.LogWarnf("Store %s error on %s: %s", event.Kind, event.Collection, event.Message)
		}
	}()

	debouncer := debounce.NewWithConfig(
		cfg.Thresholds.SmartWindow(), cfg.Thresholds.SettleDelay(),
		func(act debounce.Activation) {
			event := repo.RecordActivation(act)
			util.LogDebugf("Activation %s: %s at %s (session %s, switch %d)",
				event.Id, event.AppId, event.Timestamp.Format(time.RFC3339),
				event.SessionId, event.SessionSwitchCount)
		})

	watcher, err := feed.NewWatcher(cfg.SpoolPath, cfg.SpoolPath+".offset")
	if err != nil {
		return fmt.Errorf("failed to watch spool: %w", err)
	}

	classifier := classify.NewClassifierWithConfig(
		cfg.Thresholds.SmartWindow(), cfg.Thresholds.Meaningful(), cfg.Thresholds.Focus())
	synthesizer := classify.NewSynthesizer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild := time.NewTicker(trackRebuildInterval)
	defer rebuild.Stop()

	util.LogInfof("Tracking focus signals from %s", cfg.SpoolPath)
	fmt.Printf("focustrace tracking (spool: %s, data: %s)\n", cfg.SpoolPath, cfg.DataDir)

	for {
		select {
		case sig, ok := <-watcher.Signals():
			if !ok {
				return nil
			}
			debouncer.OnFocusSignal(sig.AppId, sig.AppName, sig.Timestamp)

		case <-rebuild.C:
			if _, err := repo.RebuildSwitches(classifier, synthesizer); err != nil {
				util.LogWarnf("Context-switch rebuild failed: %v", err)
			}

		case <-ctx.Done():
			util.LogInfo("Shutting down")
			watcher.Close()
			debouncer.Close()
			if _, err := repo.RebuildSwitches(classifier, synthesizer); err != nil {
				util.LogWarnf("Final context-switch rebuild failed: %v", err)
			}
			repo.Close()
			archiveStore.Close()
			return nil
		}
	}
}
