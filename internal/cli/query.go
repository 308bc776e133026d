package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/engine"
	"github.com/provlens/provlens/internal/model"
	"github.com/provlens/provlens/internal/retrieval"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Query the retrieval database",
		Long:  "Retrieve ranked passages with full lineage for a question.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQuery,
	}

	cmd.Flags().IntP("k", "k", 0, "Number of results (default from config)")
	cmd.Flags().String("version", "", "Filter by dataset version")
	cmd.Flags().String("uri", "", "Filter by source URI")
	cmd.Flags().String("type", "", "Filter by source type (file|document|row|remote_call)")
	cmd.Flags().Float64("min-score", 0, "Minimum similarity score")
	cmd.Flags().Int("depth", -1, "Graph expansion depth (default from config)")
	cmd.Flags().Bool("audit", false, "Audit the answer's provenance")
	cmd.Flags().Bool("json", false, "Print the answer as JSON")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	k, _ := cmd.Flags().GetInt("k")
	versionFilter, _ := cmd.Flags().GetString("version")
	uriFilter, _ := cmd.Flags().GetString("uri")
	typeFilter, _ := cmd.Flags().GetString("type")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	depth, _ := cmd.Flags().GetInt("depth")
	doAudit, _ := cmd.Flags().GetBool("audit")
	asJSON, _ := cmd.Flags().GetBool("json")

	eng, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	var filters *retrieval.FilterConfig
	if versionFilter != "" || uriFilter != "" || typeFilter != "" || minScore > 0 {
		filters = &retrieval.FilterConfig{
			DatasetVersion: versionFilter,
			SourceURI:      uriFilter,
			SourceType:     model.SourceType(typeFilter),
			MinScore:       minScore,
		}
	}

	ans, err := eng.Query(cmd.Context(), question, engine.QueryOptions{
		K:          k,
		Filters:    filters,
		GraphDepth: depth,
	})
	if err != nil {
		exitErr("query", err)
	}

	if asJSON {
		b, _ := json.MarshalIndent(ans, "", "  ")
		fmt.Println(string(b))
	} else {
		printAnswer(ans)
	}

	if doAudit {
		printReport(eng.Audit(ans))
	}
}

func printAnswer(ans model.Answer) {
	fmt.Println(ans.Answer)
	if len(ans.Lineage) == 0 {
		return
	}
	fmt.Println("\nLineage:")
	for _, entry := range ans.Lineage {
		fmt.Printf("  %.3f  %s  [%s]  %s\n",
			entry.Score, entry.RecordID, entry.DatasetVersion, entry.Source)
		if len(entry.TransformChain) > 0 {
			fmt.Printf("         transforms: %s\n", strings.Join(entry.TransformChain, " > "))
		}
	}
}

func printReport(report model.AuditReport) {
	verdict := func(s string) string {
		switch s {
		case model.StalenessPass, model.VersionSingle:
			return color.GreenString(s)
		case model.StalenessWarning, model.VersionMixed:
			return color.YellowString(s)
		case model.StalenessFail:
			return color.RedString(s)
		}
		return s
	}

	fmt.Println("\nAudit:")
	fmt.Printf("  staleness:           %s\n", verdict(report.StalenessCheck))
	fmt.Printf("  version consistency: %s\n", verdict(report.VersionConsistency))
	if len(report.TransformRiskFlags) == 0 {
		fmt.Printf("  transform risks:     %s\n", color.GreenString("none"))
		return
	}
	fmt.Println("  transform risks:")
	for _, flag := range report.TransformRiskFlags {
		fmt.Printf("    - %s\n", color.YellowString(flag))
	}
}
