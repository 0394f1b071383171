package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lzray/focustrace/internal/core/model"
	"github.com/lzray/focustrace/internal/data/repository"
	"github.com/lzray/focustrace/internal/data/store"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded activity and context switches",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false,
		"Confirm deletion without prompting")
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	if !clearYes {
		return fmt.Errorf("refusing to delete history without --yes")
	}

	notifier := store.NewNotifier()
	defer notifier.Close()

	eventStore := store.NewCollectionStore[model.ActivationEvent](
		cfg.DataDir, repository.ActivationsCollection, notifier, store.Options{VerifyAfterWrite: true})
	defer eventStore.Close()
	switchStore := store.NewCollectionStore[model.ContextSwitch](
		cfg.DataDir, repository.SwitchesCollection, notifier, store.Options{VerifyAfterWrite: true})
	defer switchStore.Close()

	if err := eventStore.Save([]model.ActivationEvent{}); err != nil {
		return err
	}
	if err := switchStore.Save([]model.ContextSwitch{}); err != nil {
		return err
	}

	fmt.Println("History cleared")
	return nil
}
