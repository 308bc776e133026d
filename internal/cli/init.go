package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize a dataset root",
		Long:  "Create the storage directory, an empty manifest and a default config file.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runInit,
	}
	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		sourceFlag = args[0]
	}

	eng, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	if err := eng.Init(); err != nil {
		exitErr("init", err)
	}
	fmt.Printf("initialized dataset at %s\n", sourceFlag)
}
