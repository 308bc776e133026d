package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "diff [from] [to]",
		Short: "Compare two dataset versions",
		Long:  "Show files added, removed, modified and unchanged between two recorded versions.",
		Args:  cobra.ExactArgs(2),
		Run:   runDiff,
	}
	RootCmd.AddCommand(cmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	eng, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	d, err := eng.Diff(args[0], args[1])
	if err != nil {
		exitErr("diff", err)
	}

	fmt.Printf("%s -> %s\n", d.From, d.To)
	for _, p := range d.Added {
		color.Green("+ %s", p)
	}
	for _, p := range d.Removed {
		color.Red("- %s", p)
	}
	for _, p := range d.Modified {
		color.Yellow("~ %s", p)
	}
	for _, p := range d.Unchanged {
		fmt.Printf("  %s\n", p)
	}
	if !d.HasChanges() {
		fmt.Println("no changes")
	}
}
