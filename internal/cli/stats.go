package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/stats"
)

func newSampleSizeCmd() *cobra.Command {
	var baseline, mde, alpha, power float64
	var exact bool

	cmd := &cobra.Command{
		Use:   "sample-size",
		Short: "Estimate the runs needed per variant",
		Long: `Estimate the per-variant sample size needed to detect a relative
effect over a baseline conversion rate.

By default the z values are fixed at alpha 0.05 and power 0.8 whatever
--alpha and --power say, matching previously planned suites. Pass --exact
to derive them from the flags.

Example:
  funnel-goat sample-size --baseline 0.1 --mde 0.2
  funnel-goat sample-size --baseline 0.1 --mde 0.2 --alpha 0.01 --power 0.9 --exact`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			if exact {
				n = stats.RequiredSampleSizeExact(baseline, mde, alpha, power)
			} else {
				n = stats.RequiredSampleSize(baseline, mde, alpha, power)
			}
			if n == 0 {
				return fmt.Errorf("baseline and mde must be positive, alpha and power within (0, 1)")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "BASELINE: %s\n", report.FormatPercent(baseline))
			fmt.Fprintf(out, "TARGET:   %s (+%.0f%% relative)\n", report.FormatPercent(baseline*(1+mde)), mde*100)
			if exact {
				fmt.Fprintf(out, "ALPHA: %g  POWER: %g\n", alpha, power)
			} else {
				fmt.Fprintln(out, "ALPHA: 0.05  POWER: 0.8 (fixed, use --exact to apply flags)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Required sample size: %s runs per variant (%s for control + 1 variant)\n",
				humanize.Comma(int64(n)), humanize.Comma(int64(2*n)))
			return nil
		},
	}

	cmd.Flags().Float64Var(&baseline, "baseline", 0, "baseline conversion rate, e.g. 0.1 (required)")
	cmd.Flags().Float64Var(&mde, "mde", 0, "minimum detectable relative effect, e.g. 0.2 (required)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "significance level")
	cmd.Flags().Float64Var(&power, "power", 0.8, "statistical power")
	cmd.Flags().BoolVar(&exact, "exact", false, "derive z values from --alpha and --power")
	cmd.MarkFlagRequired("baseline")
	cmd.MarkFlagRequired("mde")

	return cmd
}

func newSignificanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "significance <control-conversions> <control-total> <variant-conversions> <variant-total>",
		Short: "Compare two conversion counts",
		Long: `Run the chi-square test on a control and a variant, and print both
conversion rates with their 95% intervals and the relative uplift.

Example:
  funnel-goat significance 10 100 18 100`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts := make([]int, 4)
			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil || n < 0 {
					return fmt.Errorf("invalid count %q: must be a non-negative integer", arg)
				}
				counts[i] = n
			}
			cs, ct, vs, vt := counts[0], counts[1], counts[2], counts[3]
			if cs > ct || vs > vt {
				return fmt.Errorf("conversions cannot exceed the total")
			}

			result := stats.Analyze([]stats.Arm{
				{Name: "control", Successes: cs, Trials: ct},
				{Name: "variant", Successes: vs, Trials: vt},
			}, "control")

			out := cmd.OutOrStdout()
			for _, arm := range result.Arms {
				ci := "N/A"
				if arm.Trials > 0 {
					ci = fmt.Sprintf("[%.1f%%, %.1f%%]", arm.CI.Lower*100, arm.CI.Upper*100)
				}
				fmt.Fprintf(out, "%-8s %d/%d  %s  95%% CI %s\n",
					arm.Name+":", arm.Successes, arm.Trials, report.FormatPercent(arm.Rate), ci)
			}

			variant := result.Arms[1]
			sig := "no"
			if variant.Significance.Significant {
				sig = "yes"
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Uplift:      %s\n", report.FormatUplift(variant.UpliftPct))
			fmt.Fprintf(out, "p-value:     %.4f\n", variant.Significance.PValue)
			fmt.Fprintf(out, "Significant: %s (p < %.2f)\n", sig, stats.SignificanceLevel)
			return nil
		},
	}
}
