package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the retrieval database from source files",
		Long:  "Ingest every source file, run the transform pipeline, and index the resulting records under a new dataset version.",
		Run:   runBuild,
	}

	cmd.Flags().String("version", "v1.0", "Dataset version tag")
	cmd.Flags().Int("chunk-size", 0, "Override configured chunk size")
	cmd.Flags().Int("chunk-overlap", -1, "Override configured chunk overlap")

	RootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("version")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")

	eng, err := openEngineWithChunking(chunkSize, chunkOverlap)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	if err := eng.Build(cmd.Context(), tag); err != nil {
		exitErr("build", err)
	}
	fmt.Printf("built version %s\n", tag)
}
