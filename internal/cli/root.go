package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/config"
	"github.com/headline-goat/funnel-goat/internal/variant"
)

// app is the state shared by every command once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "funnel-goat",
		Short: "Funnel Goat - A/B test metrics and statistics for browser test suites",
		Long: `🐐 Funnel Goat aggregates per-run funnel metrics from browser test suites
into per-variant summaries, compares every variant against the control and
keeps a history of finalized suites in embedded SQLite.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Global flags. Defaults live in the config package, flags only
	// override when set.
	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default "+config.DefaultFile+")")
	pf.String("db", config.DefaultDB, "database path")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.String("control-variant", variant.DefaultName, "control variant name")
	pf.String("report-dir", config.DefaultReportDir, "report output directory")
	pf.Bool("persist", true, "record finalized suites in the database")

	cmd.AddCommand(
		newAggregateCmd(a),
		newSimulateCmd(a),
		newSampleSizeCmd(),
		newSignificanceCmd(),
		newHistoryCmd(a),
		newResultsCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
		newInitCmd(a),
	)

	return cmd
}

// Execute runs the CLI until it finishes or is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(cmd.ErrOrStderr())

	if cfg.File != "" {
		a.logger.Debug("loaded config", "file", cfg.File)
	}
	return nil
}
