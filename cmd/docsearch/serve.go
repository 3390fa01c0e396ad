package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/mcp"
	"github.com/dshills/docsearch/internal/storage"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			a.Logger.Info().
				Str("version", version).
				Str("build_mode", storage.BuildMode).
				Str("driver", storage.DriverName).
				Bool("vector_extension", storage.VectorExtensionAvailable).
				Msg("starting")

			errCh := make(chan error, 1)
			go func() { errCh <- mcp.NewServer(a).Serve(cmd.Context()) }()

			select {
			case <-cmd.Context().Done():
				a.Logger.Info().Msg("shutting down")
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
}
