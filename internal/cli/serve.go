package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/server"
	"github.com/headline-goat/funnel-goat/internal/store"
)

const serverURLSetting = "server_url"

func newServeCmd(a *app) *cobra.Command {
	var publicURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the history dashboard",
		Long: `Start the funnel-goat HTTP server.

The server provides:
  - Dashboard for browsing recorded suites (token protected)
  - JSON API at /api/suites
  - Health check endpoint

Example:
  funnel-goat serve --port 8080
  funnel-goat serve --url https://ab.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()

				if publicURL != "" {
					if err := s.SetSetting(ctx, serverURLSetting, publicURL); err != nil {
						return fmt.Errorf("failed to save server url: %w", err)
					}
				}

				srv := server.New(server.Config{
					Store:     s,
					Port:      a.cfg.Port,
					TokenFile: a.getTokenFilePath(),
					Out:       cmd.OutOrStdout(),
					Logger:    a.logger,
				})
				return srv.Serve(ctx)
			})
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&publicURL, "url", "", "public URL shown by the token command")

	return cmd
}
