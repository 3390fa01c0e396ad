package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/pkg/types"
)

// ReconcileReport compares the relational store with one vector index
type ReconcileReport struct {
	Index        string `json:"index"`
	Records      int    `json:"records"`
	Vectors      int    `json:"vectors"`
	IndexMissing bool   `json:"index_missing"`

	// Missing lists records with no vector in the index
	Missing []string `json:"missing"`
	// Unsettled lists records whose status is pending or unindexed
	Unsettled []string `json:"unsettled"`
	// Orphans lists vectors with no relational record
	Orphans []string `json:"orphans"`
}

// NeedsRepair returns the sorted union of Missing and Unsettled
func (r *ReconcileReport) NeedsRepair() []string {
	seen := make(map[string]struct{}, len(r.Missing)+len(r.Unsettled))
	out := make([]string, 0, len(r.Missing)+len(r.Unsettled))
	for _, list := range [][]string{r.Missing, r.Unsettled} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Consistent reports whether both stores agree
func (r *ReconcileReport) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Unsettled) == 0 && len(r.Orphans) == 0
}

// Reconcile lists relational records lacking a vector counterpart in index.
// The three listings run concurrently, each on its own pooled connection.
func (idx *Indexer) Reconcile(ctx context.Context, index string) (*ReconcileReport, error) {
	if index == "" {
		index = idx.defaultIndex
	}

	var (
		filenames []string
		ids       []string
		unsettled []*storage.Document
		missing   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		filenames, err = idx.store.ListFilenames(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ids, err = idx.index.IDs(gctx, index)
		if errors.Is(err, types.ErrIndexNotFound) {
			missing = true
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		unsettled, err = idx.store.ListByIndexStatus(gctx, storage.StatusPending, storage.StatusUnindexed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", index, err)
	}

	report := &ReconcileReport{
		Index:        index,
		Records:      len(filenames),
		Vectors:      len(ids),
		IndexMissing: missing,
		Missing:      difference(filenames, ids),
		Orphans:      difference(ids, filenames),
		Unsettled:    make([]string, 0, len(unsettled)),
	}
	for _, doc := range unsettled {
		report.Unsettled = append(report.Unsettled, doc.Filename)
	}
	sort.Strings(report.Unsettled)

	idx.logger.Info().
		Str("index", index).
		Int("records", report.Records).
		Int("vectors", report.Vectors).
		Int("missing", len(report.Missing)).
		Int("unsettled", len(report.Unsettled)).
		Int("orphans", len(report.Orphans)).
		Msg("reconcile complete")

	return report, nil
}

// Repair re-embeds every record Reconcile flags, reading text from the
// source path recorded at ingestion, and settles its status
func (idx *Indexer) Repair(ctx context.Context, index, model string) (*Report, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer idx.lock.Release()

	req := IngestRequest{Index: index, Model: model}
	if err := idx.normalizeRequest(&req); err != nil {
		return nil, err
	}

	rec, err := idx.Reconcile(ctx, req.Index)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	names := rec.NeedsRepair()
	report := &Report{
		RunID:     uuid.NewString(),
		Index:     req.Index,
		Model:     req.Model,
		Documents: make([]DocumentOutcome, len(names)),
	}
	logger := idx.runLogger(report)
	logger.Info().Int("documents", len(names)).Msg("repair started")

	pending := make([]pendingDoc, 0, len(names))
	for i, name := range names {
		out := &report.Documents[i]
		*out = DocumentOutcome{Filename: name, Outcome: OutcomeUnindexed}

		var text string
		doc, err := idx.store.GetDocument(ctx, name)
		if err == nil {
			out.Path = doc.SourcePath
			text, err = idx.sourceText(ctx, doc)
		}
		if err != nil {
			out.Err = err
			logger.Warn().Str("filename", name).Err(err).Msg("cannot reload source, left unindexed")
			idx.markStatus(ctx, logger, name, storage.StatusUnindexed)
			continue
		}
		pending = append(pending, pendingDoc{slot: i, filename: name, text: text})
	}

	runErr := idx.writeVectors(ctx, logger, req.Index, req.Model, pending, report)

	report.Duration = time.Since(start)
	logger.Info().
		Int("indexed", report.Count(OutcomeIndexed)).
		Int("unindexed", report.Count(OutcomeUnindexed)).
		Dur("duration", report.Duration).
		Msg("repair finished")

	return report, runErr
}

// difference returns the sorted elements of a not present in b
func difference(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	out := make([]string, 0)
	for _, s := range a {
		if _, ok := inB[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
