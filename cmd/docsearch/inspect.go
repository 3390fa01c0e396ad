package main

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/extractor"
)

func newInspectPDFCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect-pdf <dir>",
		Short: "Dump the info dictionary of every PDF in a directory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}

			info, err := extractor.New(extractor.WithLogger(logger)).InspectDir(args[0])
			if err != nil {
				return err
			}

			if output == "" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			var buf bytes.Buffer
			if err := writeJSON(&buf, info); err != nil {
				return err
			}
			return os.WriteFile(output, buf.Bytes(), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to this file instead of stdout")
	return cmd
}
