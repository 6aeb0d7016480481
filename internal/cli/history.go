package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"list"},
		Short:   "List recorded suites",
		Long:    `List finalized suites, newest first, with their winner and significance.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				suites, err := s.ListSuites(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("failed to list suites: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(suites) == 0 {
					fmt.Fprintln(out, "No suites recorded yet.")
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Record one with:")
					fmt.Fprintln(out, "  funnel-goat simulate")
					fmt.Fprintln(out, "  funnel-goat aggregate results.jsonl")
					return nil
				}

				t := table.NewWriter()
				t.SetOutputMirror(out)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"ID", "Suite", "Status", "Control", "Variants", "Runs", "Winner", "Recorded"})
				t.SetColumnConfigs([]table.ColumnConfig{
					{Name: "Variants", Align: text.AlignRight},
					{Name: "Runs", Align: text.AlignRight},
				})

				for _, l := range suites {
					winner := "-"
					if l.Winner != "" {
						winner = l.Winner
						if !l.WinnerSignificant {
							winner += " (not significant)"
						}
					}
					t.AppendRow(table.Row{
						shortID(l.ID),
						l.Name,
						l.Status,
						l.ControlVariant,
						l.VariantCount,
						humanize.Comma(int64(l.TotalRuns)),
						winner,
						humanize.Time(l.CreatedAt),
					})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum suites to show (0 for all)")

	return cmd
}
