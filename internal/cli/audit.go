package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "audit [question]",
		Short: "Audit the provenance behind a question's answer",
		Long:  "Run a query and report staleness, version consistency and transform risks for its lineage.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAudit,
	}

	cmd.Flags().IntP("k", "k", 0, "Number of results (default from config)")
	cmd.Flags().Int("depth", -1, "Graph expansion depth (default from config)")
	cmd.Flags().Bool("json", false, "Print the report as JSON")

	RootCmd.AddCommand(cmd)
}

func runAudit(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	k, _ := cmd.Flags().GetInt("k")
	depth, _ := cmd.Flags().GetInt("depth")
	asJSON, _ := cmd.Flags().GetBool("json")

	eng, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	ans, err := eng.Query(cmd.Context(), question, engine.QueryOptions{K: k, GraphDepth: depth})
	if err != nil {
		exitErr("query", err)
	}
	report := eng.Audit(ans)

	if asJSON {
		b, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(b))
		return
	}
	printReport(report)
}
