// Package cli implements the provlens CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/config"
	"github.com/provlens/provlens/internal/engine"
)

var (
	sourceFlag  string
	configFlag  string
	verboseFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "provlens",
	Short: "Lineage-tracked retrieval for question answering",
	Long: "Provlens retrieves text passages with complete, auditable provenance:\n" +
		"origin file, dataset version and the transform chain that produced them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verboseFlag {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", ".", "Dataset root directory")
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file path (default: <source>/provlens.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

func openEngine(progress bool) (*engine.Engine, error) {
	cfg, err := config.Load(sourceFlag, configFlag)
	if err != nil {
		return nil, err
	}
	return engine.New(sourceFlag, cfg, engine.WithProgress(progress))
}

// openEngineWithChunking applies command-line chunking overrides before
// validation. A negative overlap means "not set".
func openEngineWithChunking(chunkSize, chunkOverlap int) (*engine.Engine, error) {
	cfg, err := config.Load(sourceFlag, configFlag)
	if err != nil {
		return nil, err
	}
	if chunkSize > 0 {
		cfg.Pipeline.ChunkSize = chunkSize
	}
	if chunkOverlap >= 0 {
		cfg.Pipeline.ChunkOverlap = chunkOverlap
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return engine.New(sourceFlag, cfg, engine.WithProgress(true))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
