package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/pkg/types"
)

func newIngestCmd(opts *globalOptions) *cobra.Command {
	var (
		index       string
		accessLevel string
		authCode    string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Extract, store and index documents",
		Long: `Ingest files or directories. Directories are walked recursively for
.txt, .md and .pdf files. Each document gets a relational record first and
a vector second; documents whose vector write fails are marked unindexed
and can be fixed later with "docsearch reconcile --repair".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					paths = append(paths, arg)
					continue
				}
				found, err := indexer.DiscoverFiles(arg)
				if err != nil {
					return err
				}
				paths = append(paths, found...)
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, runErr := a.Indexer.Ingest(cmd.Context(), indexer.IngestRequest{
				Paths:       paths,
				Index:       index,
				AccessLevel: types.AccessLevel(accessLevel),
				AuthCode:    authCode,
			})
			if report == nil {
				return runErr
			}

			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				return runErr
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OUTCOME\tFILENAME\tPATH\tERROR")
			for _, d := range report.Documents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Outcome, d.Filename, d.Path, d.Error())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d indexed, %d unindexed, %d pending, %d rejected in %s (run %s)\n",
				report.Count(indexer.OutcomeIndexed), report.Count(indexer.OutcomeUnindexed),
				report.Count(indexer.OutcomePending), report.Count(indexer.OutcomeRejected),
				report.Duration.Round(time.Millisecond), report.RunID)
			return runErr
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "vector index name (defaults to config)")
	cmd.Flags().StringVar(&accessLevel, "access-level", string(types.DefaultAccessLevel), "public, restricted or confidential")
	cmd.Flags().StringVar(&authCode, "auth-code", "", "authorization code stored with each document")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the run report as JSON")
	return cmd
}
