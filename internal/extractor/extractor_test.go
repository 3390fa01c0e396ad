package extractor

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/internal/logging"
	"github.com/dshills/docsearch/pkg/types"
)

// stubPDFReader returns a fixed info dictionary or error
type stubPDFReader struct {
	info *PDFInfo
	err  error
}

func (s stubPDFReader) ReadInfo(string) (*PDFInfo, error) {
	return s.info, s.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type pdfFixture struct {
	author, title, keywords string
	created, modified       time.Time
}

func writePDF(t *testing.T, dir, name string, fx pdfFixture) string {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAuthor(fx.author, false)
	pdf.SetTitle(fx.title, false)
	pdf.SetKeywords(fx.keywords, false)
	pdf.SetCreationDate(fx.created)
	pdf.SetModificationDate(fx.modified)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, "Annual budget report")

	path := filepath.Join(dir, name)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "\n\n  Q3 planning  \nAgenda items follow.\n")
	mtime := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	meta, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", meta.Filename)
	assert.Equal(t, types.TypeText, meta.DocumentType)
	require.NotNil(t, meta.Title)
	assert.Equal(t, "Q3 planning", *meta.Title)
	assert.Equal(t, types.DefaultAuthor, meta.Author)
	assert.Equal(t, types.DefaultLanguage, meta.Language)
	assert.Equal(t, types.DefaultModifiedBy, meta.ModifiedBy)
	assert.Equal(t, "notes", meta.Tags)
	assert.Equal(t, types.AccessPublic, meta.AccessLevel)
	assert.Nil(t, meta.AuthCode)
	require.NotNil(t, meta.SizeBytes)
	assert.Equal(t, int64(39), *meta.SizeBytes)

	assert.True(t, meta.ModifiedAt.Equal(mtime), "modified_at should come from mtime, got %v", meta.ModifiedAt)
	assert.Equal(t, time.UTC, meta.ModifiedAt.Location())
	assert.False(t, meta.CreatedAt.IsZero())
	assert.NoError(t, meta.Validate())
}

func TestExtractMarkdownTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *string
	}{
		{"heading", "# Design Notes\n\nBody text.\n", types.StringPtr("Design Notes")},
		{"plain first line", "Release checklist\n- item\n", types.StringPtr("Release checklist")},
		{"leading blank lines", "\n\n# Roadmap\n", types.StringPtr("Roadmap")},
		{"empty file", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "doc.md", tt.content)
			meta, err := New().Extract(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, types.TypeMarkdown, meta.DocumentType)
			assert.Equal(t, tt.want, meta.Title)
			assert.Equal(t, "doc", meta.Tags)
		})
	}
}

func TestExtractPDF(t *testing.T) {
	created := time.Date(2023, 5, 4, 10, 20, 30, 0, time.UTC)
	modified := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	path := writePDF(t, t.TempDir(), "report.pdf", pdfFixture{
		author:   "A. Silva",
		title:    "Annual Report",
		keywords: "budget,2024",
		created:  created,
		modified: modified,
	})

	meta, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", meta.Filename)
	assert.Equal(t, types.TypePDF, meta.DocumentType)
	assert.Equal(t, "A. Silva", meta.Author)
	require.NotNil(t, meta.Title)
	assert.Equal(t, "Annual Report", *meta.Title)
	assert.Equal(t, "budget,2024", meta.Tags)
	assert.True(t, meta.CreatedAt.Equal(created), "created_at %v", meta.CreatedAt)
	assert.True(t, meta.ModifiedAt.Equal(modified), "modified_at %v", meta.ModifiedAt)
}

func TestExtractPDFWithoutInfoFallsBack(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.Options{Level: "warn", Writer: &logs})

	dir := t.TempDir()
	path := writeFile(t, dir, "scan.pdf", "this is not a pdf")
	mtime := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	meta, err := New(WithLogger(logger)).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, types.DefaultAuthor, meta.Author)
	assert.Nil(t, meta.Title)
	assert.Equal(t, "scan", meta.Tags)
	assert.True(t, meta.ModifiedAt.Equal(mtime))
	assert.False(t, meta.CreatedAt.IsZero())
	assert.Contains(t, logs.String(), `"field":"info"`)
}

func TestExtractPDFDateFailureIsPerField(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.Options{Level: "warn", Writer: &logs})

	path := writeFile(t, t.TempDir(), "memo.pdf", "%PDF-stub")
	reader := stubPDFReader{info: &PDFInfo{
		Author:       "B. Costa",
		CreationDate: "yesterday",
		ModDate:      "D:20240315120000Z",
	}}

	meta, err := New(WithLogger(logger), WithPDFReader(reader)).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "B. Costa", meta.Author)
	assert.Equal(t, "memo", meta.Tags)
	assert.True(t, meta.ModifiedAt.Equal(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, meta.CreatedAt.IsZero())
	assert.Contains(t, logs.String(), `"field":"created_at"`)
	assert.NotContains(t, logs.String(), `"field":"modified_at"`)
}

func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()
	docx := writeFile(t, dir, "letter.docx", "x")

	_, err := New().Extract(context.Background(), docx)
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))

	_, err = New().Extract(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Extract(ctx, writeFile(t, dir, "a.txt", "a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()
	ex := New(WithPDFReader(stubPDFReader{info: &PDFInfo{
		Title:    "Annual Report",
		Keywords: "budget,2024",
		Author:   "A. Silva",
	}}))
	ctx := context.Background()

	txt, err := ex.LoadText(ctx, writeFile(t, dir, "notes.txt", "Q3 planning\nship it\n"))
	require.NoError(t, err)
	assert.Equal(t, "Q3 planning\nship it", txt)

	md, err := ex.LoadText(ctx, writeFile(t, dir, "guide.md", "# Setup\n\nInstall **the** tool.\n\n```\nmake build\n```\n"))
	require.NoError(t, err)
	assert.Equal(t, "Setup\nInstall the tool.\nmake build", md)

	pdf, err := ex.LoadText(ctx, writeFile(t, dir, "report.pdf", "%PDF-stub"))
	require.NoError(t, err)
	assert.Equal(t, "Annual Report\nbudget,2024\nA. Silva", pdf)

	empty, err := ex.LoadText(ctx, writeFile(t, dir, "blank.txt", "   \n"))
	require.NoError(t, err)
	assert.Equal(t, "blank", empty)
}

func TestParsePDFDate(t *testing.T) {
	got, err := ParsePDFDate("D:20230504102030+02'00'")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2023, 5, 4, 8, 20, 30, 0, time.UTC)))
	assert.Equal(t, time.UTC, got.Location())

	_, err = ParsePDFDate("not a date")
	assert.Error(t, err)
}

func TestInspectDir(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "report.pdf", pdfFixture{
		author:   "A. Silva",
		title:    "Annual Report",
		keywords: "budget,2024",
		created:  time.Date(2023, 5, 4, 10, 20, 30, 0, time.UTC),
		modified: time.Date(2023, 5, 4, 10, 20, 30, 0, time.UTC),
	})
	writeFile(t, dir, "broken.pdf", "garbage")
	writeFile(t, dir, "notes.txt", "not a pdf")

	got, err := New().InspectDir(dir)
	require.NoError(t, err)

	require.Len(t, got, 1)
	info := got["report.pdf"]
	assert.Equal(t, "A. Silva", info["Author"])
	assert.Equal(t, "budget,2024", info["Keywords"])
	assert.Equal(t, "2023-05-04T10:20:30Z", info["CreationDate"])
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a/b/REPORT.PDF"))
	assert.True(t, Supported("x.md"))
	assert.False(t, Supported("x.go"))
}

// stubTextReader adds page text to stubPDFReader
type stubTextReader struct {
	stubPDFReader
	text    string
	textErr error
}

func (s stubTextReader) ReadText(string) (string, error) {
	return s.text, s.textErr
}

func TestLoadTextIncludesPDFPages(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "report.pdf", pdfFixture{
		author:   "A. Silva",
		title:    "Annual Report",
		keywords: "budget,2024",
		created:  time.Date(2023, 5, 4, 10, 20, 30, 0, time.UTC),
		modified: time.Date(2023, 5, 4, 10, 20, 30, 0, time.UTC),
	})

	text, err := New().LoadText(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Annual Report\nbudget,2024\nA. Silva\n"), "got %q", text)
	assert.Contains(t, text, "Annual budget report")
}

func TestLoadTextPDFPageFailureKeepsInfo(t *testing.T) {
	info := stubPDFReader{info: &PDFInfo{Title: "Annual Report", Author: "A. Silva"}}
	tests := []struct {
		name   string
		reader stubTextReader
		want   string
	}{
		{"pages appended", stubTextReader{stubPDFReader: info, text: "  Revenue grew.  "}, "Annual Report\nA. Silva\nRevenue grew."},
		{"no page text", stubTextReader{stubPDFReader: info}, "Annual Report\nA. Silva"},
		{"extraction fails", stubTextReader{stubPDFReader: info, textErr: errors.New("corrupt stream")}, "Annual Report\nA. Silva"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "report.pdf", "%PDF-stub")
			got, err := New(WithPDFReader(tt.reader)).LoadText(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single object", "BT /F1 12 Tf 31.19 794.57 Td (Annual budget report) Tj ET", "Annual budget report"},
		{"objects become lines", "BT (Q3) Tj ET\nBT (planning) Tj ET", "Q3\nplanning"},
		{"array operands joined", "BT [(Hello) -250 (world)] TJ ET", "Hello world"},
		{"escapes", `BT (a \(b\) c\\d \101) Tj ET`, `a (b) c\dA`},
		{"nested parens", "BT (f(x)) Tj ET", "f(x)"},
		{"hex strings skipped", "BT <00480065> Tj (ok) Tj ET", "ok"},
		{"comments skipped", "% (hidden)\nBT (shown) Tj ET", "shown"},
		{"no text", "0 0 m 10 10 l S", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentText([]byte(tt.content)))
		})
	}
}

func TestPageNumber(t *testing.T) {
	assert.Equal(t, 12, pageNumber("report_Content_page_12.txt"))
	assert.Equal(t, 0, pageNumber("stray.txt"))
}
