package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/extractor"
	"github.com/dshills/docsearch/internal/logging"
	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/internal/vectorindex"
	"github.com/dshills/docsearch/pkg/types"
)

// ErrRunInProgress is returned when another ingestion or repair holds the lock
var ErrRunInProgress = errors.New("another indexing run is in progress")

// Extractor reads metadata and embedding text from source files
type Extractor interface {
	Extract(ctx context.Context, path string) (*types.DocumentMetadata, error)
	LoadText(ctx context.Context, path string) (string, error)
}

// MetadataStore is the part of the relational store the indexer writes to
type MetadataStore interface {
	InsertDocument(ctx context.Context, doc *storage.Document) error
	GetDocument(ctx context.Context, filename string) (*storage.Document, error)
	SetIndexStatus(ctx context.Context, filename string, status storage.IndexStatus) error
	ListByIndexStatus(ctx context.Context, statuses ...storage.IndexStatus) ([]*storage.Document, error)
	ListFilenames(ctx context.Context) ([]string, error)
}

// VectorStore is the part of the vector index the indexer writes to
type VectorStore interface {
	AddBatch(ctx context.Context, name, model string, docs []vectorindex.Document, vectors [][]float32) error
	IDs(ctx context.Context, name string) ([]string, error)
}

// CacheInvalidator is notified after an index changes
type CacheInvalidator interface {
	InvalidateCache()
}

// Outcome is the final state of one document in a run
type Outcome string

const (
	OutcomeIndexed   Outcome = "indexed"   // both stores written
	OutcomeUnindexed Outcome = "unindexed" // relational record only, vector write failed
	OutcomePending   Outcome = "pending"   // relational record only, run stopped before the vector write
	OutcomeRejected  Outcome = "rejected"  // nothing written
)

// IngestRequest names the files to ingest and where their vectors go
type IngestRequest struct {
	Paths []string
	Index string // empty means the indexer's default index
	Model string // empty means the embedder's model

	AccessLevel types.AccessLevel // empty means public
	AuthCode    string
}

// DocumentOutcome reports what happened to one input path
type DocumentOutcome struct {
	Path     string  `json:"path"`
	Filename string  `json:"filename,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Err      error   `json:"-"`
}

// Error returns the failure message, or "" on success
func (o DocumentOutcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Report summarises an ingestion or repair run. Documents follow the
// caller's order.
type Report struct {
	RunID     string            `json:"run_id"`
	Index     string            `json:"index"`
	Model     string            `json:"model"`
	Documents []DocumentOutcome `json:"documents"`
	Duration  time.Duration     `json:"duration"`
}

// Count returns how many documents ended with outcome o
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, d := range r.Documents {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(idx *Indexer) { idx.logger = logging.OrNop(l) }
}

// WithCacheInvalidator registers a query cache to clear after writes
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(idx *Indexer) { idx.invalidator = c }
}

// WithDefaultIndex sets the index used when a request names none
func WithDefaultIndex(name string) Option {
	return func(idx *Indexer) {
		if name != "" {
			idx.defaultIndex = name
		}
	}
}

// WithBatchSize sets how many documents are embedded and written together
func WithBatchSize(n int) Option {
	return func(idx *Indexer) {
		if n > 0 && n <= embedder.MaxBatchSize {
			idx.batchSize = n
		}
	}
}

// Indexer runs the write path: extract, insert the relational record, then
// embed and write the vector. The two stores share no transaction, so every
// record carries an index status and a failed vector write leaves it
// marked unindexed for Reconcile and Repair to find.
type Indexer struct {
	extractor   Extractor
	store       MetadataStore
	index       VectorStore
	embedder    embedder.Embedder
	invalidator CacheInvalidator
	logger      *log.Logger

	defaultIndex string
	batchSize    int
	lock         IndexLock
}

// New creates a new Indexer instance
func New(ext Extractor, store MetadataStore, index VectorStore, emb embedder.Embedder, opts ...Option) *Indexer {
	idx := &Indexer{
		extractor:    ext,
		store:        store,
		index:        index,
		embedder:     emb,
		logger:       logging.Nop(),
		defaultIndex: config.DefaultIndexName,
		batchSize:    embedder.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// pendingDoc is a relational record awaiting its vector
type pendingDoc struct {
	slot     int // position in Report.Documents
	filename string
	text     string
}

// Ingest processes req.Paths in order. A failure on one document is
// recorded in its outcome and never stops the others. The returned error
// is reserved for run-level problems such as a held lock or a cancelled
// context.
func (idx *Indexer) Ingest(ctx context.Context, req IngestRequest) (*Report, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer idx.lock.Release()

	if err := idx.normalizeRequest(&req); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Index:     req.Index,
		Model:     req.Model,
		Documents: make([]DocumentOutcome, len(req.Paths)),
	}
	logger := idx.runLogger(report)
	logger.Info().Int("documents", len(req.Paths)).Msg("ingestion started")

	pending := make([]pendingDoc, 0, len(req.Paths))
	var runErr error
	for i, path := range req.Paths {
		report.Documents[i] = DocumentOutcome{Path: path, Outcome: OutcomeRejected}
		if runErr == nil {
			runErr = ctx.Err()
		}
		if runErr != nil {
			report.Documents[i].Err = runErr
			continue
		}

		doc, ok := idx.record(ctx, logger, req, &report.Documents[i])
		if ok {
			doc.slot = i
			pending = append(pending, doc)
		}
	}

	if runErr == nil {
		runErr = idx.writeVectors(ctx, logger, req.Index, req.Model, pending, report)
	} else {
		for _, doc := range pending {
			report.Documents[doc.slot].Outcome = OutcomePending
			report.Documents[doc.slot].Err = runErr
		}
	}

	report.Duration = time.Since(start)
	logger.Info().
		Int("indexed", report.Count(OutcomeIndexed)).
		Int("unindexed", report.Count(OutcomeUnindexed)).
		Int("pending", report.Count(OutcomePending)).
		Int("rejected", report.Count(OutcomeRejected)).
		Dur("duration", report.Duration).
		Msg("ingestion finished")

	return report, runErr
}

// IngestDir ingests every supported file under dir, in lexical path order.
// Hidden directories are skipped.
func (idx *Indexer) IngestDir(ctx context.Context, dir string, req IngestRequest) (*Report, error) {
	paths, err := DiscoverFiles(dir)
	if err != nil {
		return nil, err
	}
	req.Paths = paths
	return idx.Ingest(ctx, req)
}

// DiscoverFiles lists the supported documents under root, sorted
func DiscoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && extractor.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (idx *Indexer) normalizeRequest(req *IngestRequest) error {
	if req.Index == "" {
		req.Index = idx.defaultIndex
	}
	if req.Model == "" {
		req.Model = idx.embedder.Model()
	}
	if req.AccessLevel == "" {
		req.AccessLevel = types.DefaultAccessLevel
	}
	if !req.AccessLevel.Valid() {
		return fmt.Errorf("%w: access level %q", types.ErrConstraintViolation, req.AccessLevel)
	}
	return nil
}

func (idx *Indexer) runLogger(report *Report) *log.Logger {
	l := *idx.logger
	l.Context = log.NewContext(nil).Str("run", report.RunID).Str("index", report.Index).Value()
	return &l
}

// record runs phase one for a single path: extract, insert as pending and
// load the embedding text
func (idx *Indexer) record(ctx context.Context, logger *log.Logger, req IngestRequest, out *DocumentOutcome) (pendingDoc, bool) {
	meta, err := idx.extractor.Extract(ctx, out.Path)
	if err != nil {
		out.Err = err
		logger.Warn().Str("path", out.Path).Err(err).Msg("extraction failed")
		return pendingDoc{}, false
	}
	out.Filename = meta.Filename
	meta.AccessLevel = req.AccessLevel
	meta.AuthCode = types.StringPtr(req.AuthCode)

	source, err := filepath.Abs(out.Path)
	if err != nil {
		source = out.Path
	}
	doc := &storage.Document{
		DocumentMetadata: *meta,
		IndexStatus:      storage.StatusPending,
		SourcePath:       source,
	}
	if err := idx.store.InsertDocument(ctx, doc); err != nil {
		out.Err = err
		logger.Warn().Str("filename", meta.Filename).Err(err).Msg("metadata insert rejected")
		return pendingDoc{}, false
	}

	// from here on a relational record exists, so failures are compensated
	text, err := idx.extractor.LoadText(ctx, out.Path)
	if err != nil {
		out.Outcome = OutcomeUnindexed
		out.Err = err
		idx.markStatus(ctx, logger, meta.Filename, storage.StatusUnindexed)
		return pendingDoc{}, false
	}

	out.Outcome = OutcomePending
	return pendingDoc{filename: meta.Filename, text: text}, true
}

// writeVectors runs phase two: embed pending documents in batches and write
// them to the index, then settle each record's status
func (idx *Indexer) writeVectors(ctx context.Context, logger *log.Logger, index, model string, pending []pendingDoc, report *Report) error {
	written := 0
	for start := 0; start < len(pending); start += idx.batchSize {
		batch := pending[start:min(start+idx.batchSize, len(pending))]

		if err := ctx.Err(); err != nil {
			for _, doc := range pending[start:] {
				report.Documents[doc.slot].Outcome = OutcomePending
				report.Documents[doc.slot].Err = err
			}
			return err
		}

		err := idx.writeBatch(ctx, index, model, batch)
		status, outcome := storage.StatusIndexed, OutcomeIndexed
		if err != nil {
			status, outcome = storage.StatusUnindexed, OutcomeUnindexed
			logger.Error().Int("documents", len(batch)).Err(err).Msg("vector write failed, records marked unindexed")
		} else {
			written += len(batch)
		}

		for _, doc := range batch {
			out := &report.Documents[doc.slot]
			out.Outcome, out.Err = outcome, err
			if serr := idx.markStatus(ctx, logger, doc.filename, status); serr != nil && err == nil {
				// the vector exists but the record still says pending
				out.Outcome, out.Err = OutcomePending, serr
			}
		}
	}

	if written > 0 && idx.invalidator != nil {
		idx.invalidator.InvalidateCache()
	}
	return nil
}

func (idx *Indexer) writeBatch(ctx context.Context, index, model string, batch []pendingDoc) error {
	texts := make([]string, len(batch))
	docs := make([]vectorindex.Document, len(batch))
	for i, doc := range batch {
		texts[i] = doc.text
		docs[i] = vectorindex.Document{ID: doc.filename, RawText: doc.text}
	}

	vectors, err := embedder.Embed(ctx, idx.embedder, model, texts)
	if err != nil {
		return err
	}
	if err := idx.index.AddBatch(ctx, index, model, docs, vectors); err != nil {
		return fmt.Errorf("add batch to %s: %w", index, err)
	}
	return nil
}

func (idx *Indexer) markStatus(ctx context.Context, logger *log.Logger, filename string, status storage.IndexStatus) error {
	// a cancelled run still settles the statuses of what it wrote
	err := idx.store.SetIndexStatus(context.WithoutCancel(ctx), filename, status)
	if err != nil {
		logger.Error().Str("filename", filename).Str("status", string(status)).Err(err).Msg("failed to record index status")
	}
	return err
}

// sourceText loads the embedding text of a stored record from its source
func (idx *Indexer) sourceText(ctx context.Context, doc *storage.Document) (string, error) {
	if doc.SourcePath == "" {
		return "", fmt.Errorf("%s has no source path", doc.Filename)
	}
	if _, err := os.Stat(doc.SourcePath); err != nil {
		return "", fmt.Errorf("source of %s: %w", doc.Filename, err)
	}
	return idx.extractor.LoadText(ctx, doc.SourcePath)
}
