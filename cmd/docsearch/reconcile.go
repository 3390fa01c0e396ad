package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/indexer"
)

func newReconcileCmd(opts *globalOptions) *cobra.Command {
	var (
		index  string
		repair bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Find documents whose vector is missing and optionally re-index them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Indexer.Reconcile(cmd.Context(), index)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "index %s: %d records, %d vectors\n", rec.Index, rec.Records, rec.Vectors)
			printList(cmd, "missing vector", rec.Missing)
			printList(cmd, "pending or unindexed", rec.Unsettled)
			printList(cmd, "vector without record", rec.Orphans)
			if rec.Consistent() {
				fmt.Fprintln(out, "stores are consistent")
				return nil
			}

			if !repair || len(rec.NeedsRepair()) == 0 {
				return nil
			}
			report, err := a.Indexer.Repair(cmd.Context(), index, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "repaired %d, still unindexed %d\n",
				report.Count(indexer.OutcomeIndexed), report.Count(indexer.OutcomeUnindexed))
			for _, d := range report.Documents {
				if d.Err != nil {
					fmt.Fprintf(out, "  %s: %s\n", d.Filename, d.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "vector index name (defaults to config)")
	cmd.Flags().BoolVar(&repair, "repair", false, "re-embed records that lack a vector")
	return cmd
}

func printList(cmd *cobra.Command, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d): %s\n", label, len(names), strings.Join(names, ", "))
}
