package cli

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/store"
)

// confirm asks a yes/no question. Replaced in tests.
var confirm = func(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <suite>",
		Short: "Delete a recorded suite",
		Long: `Delete a suite and its variant summaries from the history database.

Example:
  funnel-goat delete 3f2a9c1e
  funnel-goat delete latest --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()

				suite, err := s.GetSuite(ctx, args[0])
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("suite '%s' not found", args[0])
					}
					return fmt.Errorf("failed to get suite: %w", err)
				}

				if !yes {
					ok, err := confirm(fmt.Sprintf("Delete suite %s (%s)", suite.Name, shortID(suite.ID)))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
						return nil
					}
				}

				if err := s.DeleteSuite(ctx, suite.ID); err != nil {
					return fmt.Errorf("failed to delete suite: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted suite '%s' (%s)\n", suite.Name, suite.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
