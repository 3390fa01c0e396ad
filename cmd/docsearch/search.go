package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/searcher"
)

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var (
		typeFilter string
		k          int
		index      string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over ingested documents",
		Long: `Embed the query, take the k nearest documents from the vector index and
join them with their stored metadata. --type keeps only one document type
(txt, md or pdf; case and a leading dot are ignored). Scores are cosine
distances, lower is closer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Searcher.Search(cmd.Context(), searcher.SearchRequest{
				Query:      args[0],
				Index:      index,
				TypeFilter: typeFilter,
				K:          k,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp.Results)
			}
			if resp.IndexMissing {
				fmt.Fprintln(cmd.OutOrStdout(), "Index not found; ingest documents first.")
				return nil
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tSCORE\tTYPE\tFILENAME\tSNIPPET")
			for _, r := range resp.Results {
				fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\n", r.Rank, r.Score, r.DocumentType.Name(), r.Filename, truncate(r.Snippet, 60))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "keep only this document type")
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "nearest neighbours to consider (defaults to config top_k)")
	cmd.Flags().StringVar(&index, "index", "", "vector index name (defaults to config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	return cmd
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
