package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/harness"
	"github.com/headline-goat/funnel-goat/internal/report"
)

func newAggregateCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "aggregate <results.jsonl>",
		Short: "Aggregate recorded run results into a suite report",
		Long: `Replay a JSON-lines file of recorded run results through the aggregator.

Each line holds one run and its result, with the ab-test-metrics and
ab-test-events attachments as strings. Use "-" to read from stdin.
The summary, events log and comparison page are written to the report
directory and the suite is recorded in the history database.

Examples:
  funnel-goat aggregate results.jsonl
  funnel-goat simulate --record - | funnel-goat aggregate - --name nightly`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var in io.Reader
			if path == "-" {
				in = cmd.InOrStdin()
			} else {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open results: %w", err)
				}
				defer f.Close()
				in = f
			}

			records, err := harness.ReadResults(in)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no run results in %s", path)
			}

			if name == "" {
				name = suiteNameFromPath(path)
			}
			a.logger.Debug("replaying results", "suite", name, "runs", len(records))

			return a.runSuite(cmd.OutOrStdout(), func(rep *report.Reporter) (*report.Report, error) {
				return harness.ReplayInto(cmd.Context(), name, records, rep)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "suite name (default: results file name)")

	return cmd
}

func suiteNameFromPath(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
