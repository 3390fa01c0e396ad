package extractor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phuslu/log"

	"github.com/dshills/docsearch/pkg/types"
)

// MaxTextRunes caps the text handed to the embedding provider per document
const MaxTextRunes = 8000

// declaredFields is what a file states about itself. Zero values mean
// "not declared" and are filled by the shared step.
type declaredFields struct {
	author   string
	title    *string
	tags     string
	created  time.Time
	modified time.Time
}

type fieldError struct {
	field string
	err   error
}

// format is one supported document variant
type format interface {
	docType() types.DocumentType
	declared(ctx context.Context, path string) (declaredFields, []fieldError)
	text(ctx context.Context, path string) (string, error)
}

type textFormat struct{}

func (textFormat) docType() types.DocumentType { return types.TypeText }

func (textFormat) declared(_ context.Context, path string) (declaredFields, []fieldError) {
	line, err := firstNonEmptyLine(path)
	if err != nil {
		return declaredFields{}, []fieldError{{field: "title", err: err}}
	}
	return declaredFields{title: types.StringPtr(line)}, nil
}

func (textFormat) text(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

type markdownFormat struct{}

func (markdownFormat) docType() types.DocumentType { return types.TypeMarkdown }

func (markdownFormat) declared(_ context.Context, path string) (declaredFields, []fieldError) {
	line, err := firstNonEmptyLine(path)
	if err != nil {
		return declaredFields{}, []fieldError{{field: "title", err: err}}
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "# "))
	return declaredFields{title: types.StringPtr(line)}, nil
}

func (markdownFormat) text(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return markdownPlainText(data), nil
}

type pdfFormat struct {
	reader PDFInfoReader
	logger *log.Logger
}

func (pdfFormat) docType() types.DocumentType { return types.TypePDF }

func (p pdfFormat) declared(_ context.Context, path string) (declaredFields, []fieldError) {
	info, err := p.reader.ReadInfo(path)
	if err != nil {
		return declaredFields{}, []fieldError{{field: "info", err: err}}
	}

	d := declaredFields{
		author: strings.TrimSpace(info.Author),
		title:  types.StringPtr(strings.TrimSpace(info.Title)),
		tags:   strings.TrimSpace(info.Keywords),
	}

	var errs []fieldError
	if info.CreationDate != "" {
		if d.created, err = ParsePDFDate(info.CreationDate); err != nil {
			errs = append(errs, fieldError{field: "created_at", err: err})
		}
	}
	if info.ModDate != "" {
		if d.modified, err = ParsePDFDate(info.ModDate); err != nil {
			errs = append(errs, fieldError{field: "modified_at", err: err})
		}
	}
	return d, errs
}

// text describes the PDF through its info dictionary followed by the page
// text, when the reader can extract it. A page text failure keeps the
// info dictionary description.
func (p pdfFormat) text(_ context.Context, path string) (string, error) {
	info, err := p.reader.ReadInfo(path)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, s := range []string{info.Title, info.Subject, info.Keywords, info.Author} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	if tr, ok := p.reader.(PDFTextReader); ok {
		body, err := tr.ReadText(path)
		switch {
		case err != nil:
			p.logger.Warn().Str("path", path).Err(err).Msg("pdf page text unavailable, using info dictionary")
		case strings.TrimSpace(body) != "":
			parts = append(parts, strings.TrimSpace(body))
		}
	}
	return strings.Join(parts, "\n"), nil
}

func firstNonEmptyLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			if !utf8.ValidString(line) {
				return "", fmt.Errorf("first line is not valid UTF-8")
			}
			return line, nil
		}
	}
	return "", scanner.Err()
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
