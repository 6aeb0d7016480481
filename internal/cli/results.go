package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/store"
)

func newResultsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "results <suite>",
		Short: "Show the summary of a recorded suite",
		Long: `Show the ranked variant summary and the comparison against the control
for a recorded suite. The suite may be an id, a unique id prefix or
"latest".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				suite, rep, err := loadSuite(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "SUITE: %s (%s)\n", suite.Name, suite.ID)
				fmt.Fprintf(out, "STATUS: %s\n", suite.Status)
				fmt.Fprintf(out, "RECORDED: %s (%s)\n", suite.CreatedAt.Format("2006-01-02 15:04"), humanize.Time(suite.CreatedAt))
				fmt.Fprintf(out, "DURATION: %dms\n", suite.Duration.Milliseconds())

				report.WriteSummary(out, rep)
				return nil
			})
		},
	}
}
