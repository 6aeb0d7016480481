package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/store"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show dashboard URL with access token",
		Long: `Show the dashboard URL with your access token.

Use this when you've scrolled past the startup message or need to
share the dashboard link.

Example:
  funnel-goat token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(a.getTokenFilePath())
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no server running. Start with: funnel-goat serve")
				}
				return fmt.Errorf("failed to read token file: %w", err)
			}

			token := strings.TrimSpace(string(data))
			if token == "" {
				return fmt.Errorf("token file is empty. Restart the server with: funnel-goat serve")
			}

			// Try to get the server URL from settings
			serverURL := fmt.Sprintf("http://localhost:%d", a.cfg.Port)
			_ = a.withStore(func(s *store.SQLiteStore) error {
				if url, err := s.GetSetting(cmd.Context(), serverURLSetting); err == nil && url != "" {
					serverURL = strings.TrimRight(url, "/")
				}
				return nil
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dashboard: %s/dashboard?token=%s\n", serverURL, token)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Tip: Bookmark this URL or run 'funnel-goat token' anytime.")
			return nil
		},
	}
}
