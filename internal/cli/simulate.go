package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/harness"
	"github.com/headline-goat/funnel-goat/internal/report"
)

func newSimulateCmd(a *app) *cobra.Command {
	var name, record string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded synthetic suite through the pipeline",
		Long: `Generate synthetic visitors for every configured funnel and run them
through the harness, the aggregator and the report emitter.

Funnels come from the simulate.funnels config key; without it a control
and a widget arm are simulated, the widget converting better. The same
seed always produces the same runs.

Examples:
  funnel-goat simulate
  funnel-goat simulate --runs 200 --seed 7 --vitals
  funnel-goat simulate --record results.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cfg.Simulate.Runs <= 0 {
				return fmt.Errorf("runs must be positive, got %d", cfg.Simulate.Runs)
			}

			sim := harness.Simulation{
				Funnels: cfg.Funnels(cfg.Simulate.Runs),
				Seed:    cfg.Simulate.Seed,
				Vitals:  cfg.Simulate.Vitals,
			}

			out := cmd.OutOrStdout()
			var rec io.Writer
			switch record {
			case "":
			case "-":
				// Records own stdout, the console report moves to stderr
				rec = out
				out = cmd.ErrOrStderr()
			default:
				f, err := os.Create(record)
				if err != nil {
					return fmt.Errorf("failed to create record file: %w", err)
				}
				defer f.Close()
				rec = f
			}

			runner := harness.New(harness.Options{
				Workers:      cfg.Workers,
				Resolver:     cfg.Resolver(),
				VitalsWindow: cfg.VitalsWindow,
				Record:       rec,
				Logger:       a.logger,
			})

			cases := sim.Cases()
			a.logger.Debug("simulating suite", "suite", name, "runs", len(cases), "seed", sim.Seed)

			return a.runSuite(out, func(rep *report.Reporter) (*report.Report, error) {
				return runner.Execute(cmd.Context(), name, cases, rep)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "simulation", "suite name")
	cmd.Flags().Int("runs", 50, "runs per funnel")
	cmd.Flags().Uint64("seed", 1, "random seed")
	cmd.Flags().Bool("vitals", false, "sample synthetic web vitals in every run")
	cmd.Flags().Int("workers", 0, "concurrent runs (default GOMAXPROCS)")
	cmd.Flags().StringVar(&record, "record", "", "write every run result as JSON lines to this file (- for stdout)")

	return cmd
}
