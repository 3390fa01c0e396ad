package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DocumentType is the stored form of a document format, a dotted extension
type DocumentType string

const (
	TypeText     DocumentType = ".txt"
	TypeMarkdown DocumentType = ".md"
	TypePDF      DocumentType = ".pdf"
)

// Valid reports whether t is one of the supported document types
func (t DocumentType) Valid() bool {
	switch t {
	case TypeText, TypeMarkdown, TypePDF:
		return true
	}
	return false
}

// Name returns the type without its leading dot ("txt", "md", "pdf")
func (t DocumentType) Name() string {
	return NormalizeType(string(t))
}

// TypeForExtension maps a file extension to its document type.
// Matching is case-insensitive; ".markdown" is accepted as Markdown.
func TypeForExtension(ext string) (DocumentType, bool) {
	switch strings.ToLower(ext) {
	case ".txt":
		return TypeText, true
	case ".md", ".markdown":
		return TypeMarkdown, true
	case ".pdf":
		return TypePDF, true
	}
	return "", false
}

// NormalizeType reduces a type filter or stored type to a comparable key:
// lower-cased, trimmed, without leading dots, with common aliases folded.
func NormalizeType(s string) string {
	s = strings.TrimLeft(strings.ToLower(strings.TrimSpace(s)), ".")
	switch s {
	case "text":
		return "txt"
	case "markdown":
		return "md"
	}
	return s
}

// AccessLevel is the stored access classification of a document.
// It is recorded, not enforced.
type AccessLevel string

const (
	AccessPublic       AccessLevel = "public"
	AccessRestricted   AccessLevel = "restricted"
	AccessConfidential AccessLevel = "confidential"
)

// Valid reports whether l is one of the known access levels
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessPublic, AccessRestricted, AccessConfidential:
		return true
	}
	return false
}

// Default values filled in by extraction when a source yields nothing
const (
	DefaultAuthor      = "unknown author"
	DefaultLanguage    = "unknown"
	DefaultModifiedBy  = "system"
	DefaultAccessLevel = AccessPublic
)

// DocumentMetadata describes one ingested document. Filename is its identity.
type DocumentMetadata struct {
	Filename     string       `json:"filename" validate:"required"`
	Author       string       `json:"author"`
	Title        *string      `json:"title"`
	Language     string       `json:"language"`
	CreatedAt    time.Time    `json:"created_at"`
	ModifiedAt   time.Time    `json:"modified_at"`
	ModifiedBy   string       `json:"modified_by"`
	DocumentType DocumentType `json:"document_type" validate:"required,oneof=.txt .md .pdf"`
	Tags         string       `json:"tags"`
	AccessLevel  AccessLevel  `json:"access_level" validate:"required,oneof=public restricted confidential"`
	AuthCode     *string      `json:"auth_code,omitempty"`
	SizeBytes    *int64       `json:"size_bytes,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the closed-set fields and the required identity.
// Any failure wraps ErrConstraintViolation.
func (m *DocumentMetadata) Validate() error {
	if err := structValidator().Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	if m.CreatedAt.IsZero() || m.ModifiedAt.IsZero() {
		return fmt.Errorf("%w: timestamps must be set", ErrConstraintViolation)
	}
	return nil
}

// TagList splits the stored tag string on commas, dropping blanks
func (m *DocumentMetadata) TagList() []string {
	parts := strings.Split(m.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// FileStem returns a filename without directory and extension
func FileStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
