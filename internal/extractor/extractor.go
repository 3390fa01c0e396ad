package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"github.com/dshills/docsearch/internal/logging"
	"github.com/dshills/docsearch/pkg/types"
)

// Extractor produces metadata and embedding text for supported files
type Extractor struct {
	pdf    PDFInfoReader
	logger *log.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for field-level warnings
func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithPDFReader replaces the PDF info dictionary reader
func WithPDFReader(r PDFInfoReader) Option {
	return func(e *Extractor) { e.pdf = r }
}

// New creates an Extractor backed by pdfcpu for PDF files
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.pdf == nil {
		e.pdf = NewPDFCPUReader()
	}
	e.logger = logging.OrNop(e.logger)
	return e
}

// Supported reports whether path has an extension the extractor handles
func Supported(path string) bool {
	_, ok := types.TypeForExtension(filepath.Ext(path))
	return ok
}

// Extract reads the file at path and returns its metadata.
// Unsupported extensions return types.ErrUnsupportedFormat; a missing file
// returns an error wrapping fs.ErrNotExist. Failures while reading
// individual fields are logged and defaulted.
func (e *Extractor) Extract(ctx context.Context, path string) (*types.DocumentMetadata, error) {
	f, err := e.formatFor(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	declared, fieldErrs := f.declared(ctx, path)
	for _, fe := range fieldErrs {
		e.logger.Warn().Str("path", path).Str("field", fe.field).Err(fe.err).Msg("metadata field unavailable, using fallback")
	}

	return e.fill(path, info, f.docType(), declared), nil
}

// LoadText returns the text that represents the document in the vector index
func (e *Extractor) LoadText(ctx context.Context, path string) (string, error) {
	f, err := e.formatFor(path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := f.text(ctx, path)
	if err != nil {
		return "", fmt.Errorf("load text %s: %w", path, err)
	}
	if text == "" {
		text = types.FileStem(path)
	}
	return truncateRunes(text, MaxTextRunes), nil
}

func (e *Extractor) formatFor(path string) (format, error) {
	docType, ok := types.TypeForExtension(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, filepath.Ext(path))
	}
	switch docType {
	case types.TypeText:
		return textFormat{}, nil
	case types.TypeMarkdown:
		return markdownFormat{}, nil
	default:
		return pdfFormat{reader: e.pdf, logger: e.logger}, nil
	}
}

// fill is the default-filling step shared by every format
func (e *Extractor) fill(path string, info os.FileInfo, docType types.DocumentType, d declaredFields) *types.DocumentMetadata {
	filename := filepath.Base(path)
	size := info.Size()

	meta := &types.DocumentMetadata{
		Filename:     filename,
		Author:       types.DefaultAuthor,
		Title:        d.title,
		Language:     types.DefaultLanguage,
		ModifiedBy:   types.DefaultModifiedBy,
		DocumentType: docType,
		Tags:         types.FileStem(filename),
		AccessLevel:  types.DefaultAccessLevel,
		SizeBytes:    &size,
	}
	if d.author != "" {
		meta.Author = d.author
	}
	if d.tags != "" {
		meta.Tags = d.tags
	}

	fsTimes := statTimes(path, info)
	if fsTimes.birthErr != nil && d.created.IsZero() {
		e.logger.Warn().Str("path", path).Err(fsTimes.birthErr).Msg("birth time unavailable, using change time for created_at")
	}
	meta.CreatedAt = firstTime(d.created, fsTimes.birth, fsTimes.change)
	meta.ModifiedAt = firstTime(d.modified, fsTimes.modified, fsTimes.change)

	return meta
}

func firstTime(candidates ...time.Time) time.Time {
	for _, t := range candidates {
		if !t.IsZero() {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
