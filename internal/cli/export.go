package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/emitter"
	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <suite>",
		Short: "Export a recorded suite",
		Long: `Export a recorded suite's variant summaries in CSV or JSON format.
The JSON form is the same document as ab-test-summary.json.

Examples:
  funnel-goat export latest --format csv > nightly.csv
  funnel-goat export 3f2a9c1e --format json > nightly.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("invalid format: must be 'csv' or 'json'")
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				_, rep, err := loadSuite(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}

				if format == "csv" {
					return exportCSV(cmd.OutOrStdout(), rep)
				}
				return exportJSON(cmd.OutOrStdout(), rep)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv or json)")

	return cmd
}

func exportCSV(out io.Writer, rep *report.Report) error {
	w := csv.NewWriter(out)

	// Write header
	if err := w.Write([]string{
		"variant", "project", "control", "total_runs", "passed", "failed", "avg_duration_ms",
		"impressions", "clicks", "form_starts", "form_completions",
		"ctr", "conversion_rate", "avg_time_to_conversion_ms",
	}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	formatFloat := func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// Write rows
	for _, v := range rep.Variants {
		m := v.Metrics
		row := []string{
			v.Variant,
			v.Project,
			strconv.FormatBool(v.Variant == rep.ControlVariant),
			strconv.Itoa(v.TotalRuns),
			strconv.Itoa(v.Passed),
			strconv.Itoa(v.Failed),
			formatFloat(v.AvgDuration),
			strconv.Itoa(m.Impressions),
			strconv.Itoa(m.Clicks),
			strconv.Itoa(m.FormStarts),
			strconv.Itoa(m.FormCompletions),
			formatFloat(m.CTR),
			formatFloat(m.ConversionRate),
			formatFloat(m.AvgTimeToConversion),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func exportJSON(out io.Writer, rep *report.Report) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(emitter.NewSummary(rep))
}
