package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFInfo holds the entries of a PDF document information dictionary.
// Dates are kept in their raw PDF form ("D:YYYYMMDDHHmmSSOHH'mm'").
type PDFInfo struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

// PDFInfoReader reads the information dictionary of a PDF file
type PDFInfoReader interface {
	ReadInfo(path string) (*PDFInfo, error)
}

// PDFTextReader is implemented by readers that can also return page text
type PDFTextReader interface {
	ReadText(path string) (string, error)
}

var disableConfigDir sync.Once

// PDFCPUReader reads PDF info dictionaries with pdfcpu
type PDFCPUReader struct{}

// NewPDFCPUReader creates a reader that never touches the pdfcpu config directory
func NewPDFCPUReader() *PDFCPUReader {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFCPUReader{}
}

// ReadInfo parses and validates the PDF at path and returns its info dictionary
func (r *PDFCPUReader) ReadInfo(path string) (*PDFInfo, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", filepath.Base(path), err)
	}
	// Context embeds both Configuration and XRefTable, so the info fields
	// are selected through the table explicitly
	xt := ctx.XRefTable
	return &PDFInfo{
		Title:        xt.Title,
		Author:       xt.Author,
		Subject:      xt.Subject,
		Keywords:     xt.Keywords,
		Creator:      xt.Creator,
		Producer:     xt.Producer,
		CreationDate: xt.CreationDate,
		ModDate:      xt.ModDate,
	}, nil
}

// ReadText extracts the content streams of every page and returns the
// text shown by them, one line per text object, pages in order
func (r *PDFCPUReader) ReadText(path string) (string, error) {
	outDir, err := os.MkdirTemp("", "docsearch-pdf-")
	if err != nil {
		return "", fmt.Errorf("create content dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	if err := api.ExtractContentFile(path, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("extract content %s: %w", filepath.Base(path), err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("read content dir: %w", err)
	}
	type page struct {
		num  int
		file string
	}
	pages := make([]page, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pages = append(pages, page{num: pageNumber(entry.Name()), file: entry.Name()})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].num != pages[j].num {
			return pages[i].num < pages[j].num
		}
		return pages[i].file < pages[j].file
	})

	var b strings.Builder
	for _, p := range pages {
		content, err := os.ReadFile(filepath.Join(outDir, p.file))
		if err != nil {
			return "", fmt.Errorf("read page content: %w", err)
		}
		if text := contentText(content); text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}
	return b.String(), nil
}

// pageNumber reads n from content file names ending in "_<n>.txt"
func pageNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	n, err := strconv.Atoi(stem[strings.LastIndex(stem, "_")+1:])
	if err != nil {
		return 0
	}
	return n
}

// contentText collects the literal strings of a decoded content stream.
// Strings of one BT/ET text object are joined with spaces; hex strings are
// font-encoded glyph ids and are skipped.
func contentText(content []byte) string {
	var lines []string
	var parts []string
	flush := func() {
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, " "))
			parts = parts[:0]
		}
	}

	for i := 0; i < len(content); i++ {
		switch c := content[i]; {
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case c == '(':
			str, end := literalString(content, i+1)
			if str = strings.TrimSpace(str); str != "" {
				parts = append(parts, str)
			}
			i = end
		case c == 'E' && i+1 < len(content) && content[i+1] == 'T' && isDelimited(content, i, 2):
			flush()
			i++
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// literalString decodes a PDF literal string starting after its opening
// parenthesis and returns it with the index of the closing one
func literalString(src []byte, start int) (string, int) {
	var b strings.Builder
	depth := 1
	i := start
	for ; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\\':
			i++
			if i >= len(src) {
				return b.String(), i
			}
			switch e := src[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v, n := 0, 0
					for n < 3 && i < len(src) && src[i] >= '0' && src[i] <= '7' {
						v = v*8 + int(src[i]-'0')
						i++
						n++
					}
					i--
					b.WriteRune(rune(byte(v)))
					continue
				}
				b.WriteByte(e)
			}
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i
			}
			b.WriteByte(c)
		default:
			if c >= 0x80 {
				// single-byte font encodings map the upper half to Latin-1
				b.WriteRune(rune(c))
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String(), i
}

// isDelimited reports whether the n-byte token at i stands alone
func isDelimited(src []byte, i, n int) bool {
	isSpace := func(c byte) bool {
		return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
	}
	if i > 0 && !isSpace(src[i-1]) {
		return false
	}
	return i+n >= len(src) || isSpace(src[i+n])
}

// ParsePDFDate parses a PDF date string and returns it in UTC
func ParsePDFDate(s string) (time.Time, error) {
	t, ok := pdftypes.DateTime(strings.TrimSpace(s), true)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid pdf date %q", s)
	}
	return t.UTC(), nil
}

// InspectPDF returns the non-empty info dictionary entries of a PDF.
// Dates that parse are rendered as RFC 3339 UTC, others are kept raw.
func (e *Extractor) InspectPDF(path string) (map[string]string, error) {
	info, err := e.pdf.ReadInfo(path)
	if err != nil {
		return nil, err
	}

	entries := map[string]string{
		"Title":        info.Title,
		"Author":       info.Author,
		"Subject":      info.Subject,
		"Keywords":     info.Keywords,
		"Creator":      info.Creator,
		"Producer":     info.Producer,
		"CreationDate": info.CreationDate,
		"ModDate":      info.ModDate,
	}
	for _, key := range []string{"CreationDate", "ModDate"} {
		if t, err := ParsePDFDate(entries[key]); err == nil {
			entries[key] = t.Format(time.RFC3339)
		}
	}
	for k, v := range entries {
		if strings.TrimSpace(v) == "" {
			delete(entries, k)
		}
	}
	return entries, nil
}

// InspectDir inspects every PDF directly inside dir, keyed by file name.
// Unreadable PDFs are logged and left out.
func (e *Extractor) InspectDir(dir string) (map[string]map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	result := make(map[string]map[string]string, len(names))
	for _, name := range names {
		info, err := e.InspectPDF(filepath.Join(dir, name))
		if err != nil {
			e.logger.Warn().Str("file", name).Err(err).Msg("skipping unreadable pdf")
			continue
		}
		result[name] = info
	}
	return result, nil
}
