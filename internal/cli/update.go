package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the retrieval database incrementally",
		Long:  "Snapshot a new dataset version and re-ingest changed files (or everything with --all).",
		Run:   runUpdate,
	}

	cmd.Flags().String("version", "", "New dataset version tag (default: current bumped by 0.1)")
	cmd.Flags().Bool("all", false, "Re-ingest all files instead of changed files only")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("version")
	all, _ := cmd.Flags().GetBool("all")

	eng, err := openEngine(true)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	if tag == "" {
		tag = eng.NextVersion()
	}

	if err := eng.Update(cmd.Context(), tag, !all); err != nil {
		exitErr("update", err)
	}
	fmt.Printf("updated to version %s\n", tag)
}
