package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/headline-goat/funnel-goat/internal/metrics"
)

func (r *Reporter) printRun(run RunInfo, result RunResult, att *metrics.RunAttachment) {
	if result.Status != StatusPassed {
		fmt.Fprintf(r.out, "✗ %s - %s\n", run.Title, result.Status)
		return
	}
	fmt.Fprintf(r.out, "✓ %s\n", run.Title)
	fmt.Fprintf(r.out, "   Variant: %s\n", att.Variant)
	fmt.Fprintf(r.out, "   Conversion: %.1f%%\n", att.Metrics.OverallConversion*100)
	fmt.Fprintf(r.out, "   Time: %dms\n\n", att.Metrics.TimeToSubmit)
}

func (r *Reporter) printSummary(rep *Report) {
	WriteSummary(r.out, rep)
}

// Ranked returns the summaries ordered by conversion rate, best first.
// Ties are broken by name.
func Ranked(summaries []VariantSummary) []VariantSummary {
	ranked := make([]VariantSummary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Metrics.ConversionRate, ranked[j].Metrics.ConversionRate
		if a != b {
			return a > b
		}
		return ranked[i].Variant < ranked[j].Variant
	})
	return ranked
}

// WriteSummary prints the ranked variant table and, when present, the
// comparison table.
func WriteSummary(w io.Writer, rep *Report) {
	fmt.Fprintf(w, "\nA/B Test Results Summary\n\n")

	if len(rep.Variants) == 0 {
		fmt.Fprintln(w, "No metrics collected.")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Variant", "Project", "Runs", "Passed", "Failed",
			"Impressions", "Clicks", "Form Starts", "Completions", "CTR", "Conversion", "Avg Time"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Runs", Align: text.AlignRight},
			{Name: "Impressions", Align: text.AlignRight},
			{Name: "Clicks", Align: text.AlignRight},
			{Name: "Form Starts", Align: text.AlignRight},
			{Name: "Completions", Align: text.AlignRight},
			{Name: "CTR", Align: text.AlignRight},
			{Name: "Conversion", Align: text.AlignRight},
			{Name: "Avg Time", Align: text.AlignRight},
		})
		for i, s := range Ranked(rep.Variants) {
			name := s.Variant
			if name == rep.ControlVariant {
				name += " (control)"
			}
			t.AppendRow(table.Row{
				i + 1, name, s.Project, s.TotalRuns, s.Passed, s.Failed,
				s.Metrics.Impressions, s.Metrics.Clicks, s.Metrics.FormStarts, s.Metrics.FormCompletions,
				FormatPercent(s.Metrics.CTR), FormatPercent(s.Metrics.ConversionRate),
				fmt.Sprintf("%.0fms", s.Metrics.AvgTimeToConversion),
			})
		}
		t.Render()
	}

	if rep.ParseFailures > 0 || rep.MissingMetrics > 0 {
		fmt.Fprintf(w, "\nDropped runs: %d unparseable, %d without metrics\n", rep.ParseFailures, rep.MissingMetrics)
	}

	if rep.Comparison != nil {
		writeComparison(w, rep.Comparison)
	}
}

func writeComparison(w io.Writer, cmp *Comparison) {
	fmt.Fprintf(w, "\nVariant Comparison (control: %s)\n\n", cmp.ControlVariant)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Variant", "CTR", "Conversion", "Time", "p-value", "Significant"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "CTR", Align: text.AlignRight},
		{Name: "Conversion", Align: text.AlignRight},
		{Name: "Time", Align: text.AlignRight},
		{Name: "p-value", Align: text.AlignRight},
	})
	for _, v := range cmp.Variants {
		sig := "no"
		if v.Significant {
			sig = "yes"
		}
		t.AppendRow(table.Row{
			v.Variant + " vs " + cmp.ControlVariant,
			FormatUplift(v.CTRUpliftPct),
			FormatUplift(v.ConversionUpliftPct),
			FormatTimeChange(v.TimeChangePct),
			fmt.Sprintf("%.4f", v.PValue),
			sig,
		})
	}
	t.Render()

	verdict := "not significant"
	if cmp.WinnerSignificant {
		verdict = "significant"
	}
	fmt.Fprintf(w, "\nWinner: %s (%s)\n", cmp.Winner, verdict)
}

// FormatPercent renders a rate in [0,1] as a percentage.
func FormatPercent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// FormatUplift renders a relative change with its direction.
func FormatUplift(pct float64) string {
	if pct > 0 {
		return fmt.Sprintf("+%.1f%% (improvement)", pct)
	}
	if pct < 0 {
		return fmt.Sprintf("%.1f%% (decline)", pct)
	}
	return "0.0%"
}

// FormatTimeChange renders a time-to-conversion change; lower is better.
func FormatTimeChange(pct float64) string {
	switch {
	case pct < 0:
		return fmt.Sprintf("%.1f%% faster", math.Abs(pct))
	case pct > 0:
		return fmt.Sprintf("%.1f%% slower", pct)
	default:
		return "unchanged"
	}
}
