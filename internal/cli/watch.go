package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/watcher"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the dataset root and update incrementally on change",
		Long:  "Observe source files and run an incremental update after each debounced burst of changes. Runs until interrupted.",
		Run:   runWatch,
	}

	cmd.Flags().Duration("debounce", watcher.DefaultDebounce, "Quiet period before an update triggers")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	debounce, _ := cmd.Flags().GetDuration("debounce")

	eng, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	w, err := watcher.New(sourceFlag, debounce, func() error {
		tag := eng.NextVersion()
		if err := eng.Update(cmd.Context(), tag, true); err != nil {
			return err
		}
		fmt.Printf("updated to version %s\n", tag)
		return nil
	})
	if err != nil {
		exitErr("watch", err)
	}

	fmt.Printf("watching %s (debounce %s)\n", sourceFlag, debounce)
	if err := w.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
		exitErr("watch", err)
	}
}
