package storage

import (
	"context"

	"github.com/dshills/docsearch/pkg/types"
)

// IndexStatus records whether a document's vector reached the index
type IndexStatus string

const (
	// StatusPending is set by the relational write, before the vector write
	StatusPending IndexStatus = "pending"
	// StatusIndexed means the vector write succeeded
	StatusIndexed IndexStatus = "indexed"
	// StatusUnindexed means the vector write failed and the document awaits repair
	StatusUnindexed IndexStatus = "unindexed"
)

// Storage is the relational metadata store
type Storage interface {
	// Insert stores a new document. A second insert of the same filename
	// fails with types.ErrDuplicateIdentity and leaves the first untouched.
	Insert(ctx context.Context, meta *types.DocumentMetadata) error
	InsertDocument(ctx context.Context, doc *Document) error

	// GetByFilename returns types.ErrNotFound when no record exists
	GetByFilename(ctx context.Context, filename string) (*types.DocumentMetadata, error)
	GetDocument(ctx context.Context, filename string) (*Document, error)

	// SearchByTags returns documents whose tags contain any of the given tags
	SearchByTags(ctx context.Context, tags []string) ([]*types.DocumentMetadata, error)

	// Index status operations
	SetIndexStatus(ctx context.Context, filename string, status IndexStatus) error
	ListByIndexStatus(ctx context.Context, statuses ...IndexStatus) ([]*Document, error)
	ListFilenames(ctx context.Context) ([]string, error)

	// GetStatus summarises the store
	GetStatus(ctx context.Context) (*Status, error)

	Close() error
}

// Document is a stored record: the metadata plus ingestion bookkeeping
type Document struct {
	types.DocumentMetadata
	IndexStatus IndexStatus `json:"index_status"`
	SourcePath  string      `json:"source_path,omitempty"`
}

// Status contains statistics about the metadata store
type Status struct {
	Documents     int                        `json:"documents"`
	ByType        map[types.DocumentType]int `json:"by_type"`
	ByIndexStatus map[IndexStatus]int        `json:"by_index_status"`
	SchemaVersion string                     `json:"schema_version"`
}
