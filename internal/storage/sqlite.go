package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/docsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested document doesn't exist
	ErrNotFound = types.ErrNotFound
	// ErrAlreadyExists is returned when trying to insert a duplicate filename
	ErrAlreadyExists = types.ErrDuplicateIdentity
)

// Options configures the SQLite metadata store
type Options struct {
	PoolSize int
}

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the metadata database at dbPath
func NewSQLiteStorage(dbPath string, opts Options) (*SQLiteStorage, error) {
	db, err := Open(dbPath, opts.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, MetadataMigrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the connection pool
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const documentColumns = `
	filename, author, title, language, created_at, modified_at, modified_by,
	document_type, tags, access_level, auth_code, size_bytes, index_status, source_path`

// Insert stores metadata with a pending index status
func (s *SQLiteStorage) Insert(ctx context.Context, meta *types.DocumentMetadata) error {
	if meta == nil {
		return fmt.Errorf("%w: nil metadata", types.ErrConstraintViolation)
	}
	return s.InsertDocument(ctx, &Document{DocumentMetadata: *meta, IndexStatus: StatusPending})
}

// InsertDocument stores a document record
func (s *SQLiteStorage) InsertDocument(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.IndexStatus == "" {
		doc.IndexStatus = StatusPending
	}

	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return WithConn(ctx, s.db, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, query,
			doc.Filename, doc.Author, nullString(doc.Title), doc.Language,
			doc.CreatedAt.UTC(), doc.ModifiedAt.UTC(), doc.ModifiedBy,
			string(doc.DocumentType), doc.Tags, string(doc.AccessLevel),
			nullString(doc.AuthCode), nullInt64(doc.SizeBytes),
			string(doc.IndexStatus), sql.NullString{String: doc.SourcePath, Valid: doc.SourcePath != ""},
		)
		if err != nil {
			return classifyError(fmt.Sprintf("insert %s", doc.Filename), err)
		}
		return nil
	})
}

// GetByFilename returns the metadata stored for filename
func (s *SQLiteStorage) GetByFilename(ctx context.Context, filename string) (*types.DocumentMetadata, error) {
	doc, err := s.GetDocument(ctx, filename)
	if err != nil {
		return nil, err
	}
	return &doc.DocumentMetadata, nil
}

// GetDocument returns the full record stored for filename
func (s *SQLiteStorage) GetDocument(ctx context.Context, filename string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE filename = ?`

	var doc *Document
	err := WithConn(ctx, s.db, func(conn *sql.Conn) error {
		var err error
		doc, err = scanDocument(conn.QueryRowContext(ctx, query, filename))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", filename, err)
	}
	return doc, nil
}

// SearchByTags returns documents whose tag string contains any of tags as a
// substring. Matching follows SQLite LIKE, so it ignores ASCII case. Blank
// tags are ignored and an empty tag set yields an empty result.
func (s *SQLiteStorage) SearchByTags(ctx context.Context, tags []string) ([]*types.DocumentMetadata, error) {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return []*types.DocumentMetadata{}, nil
	}

	clauses := make([]string, len(tags))
	args := make([]interface{}, len(tags))
	for i, tag := range tags {
		clauses[i] = `tags LIKE ? ESCAPE '\'`
		args[i] = "%" + escapeLike(tag) + "%"
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` +
		strings.Join(clauses, " OR ") + ` ORDER BY filename`

	results := make([]*types.DocumentMetadata, 0)
	err := WithConn(ctx, s.db, func(conn *sql.Conn) error {
		docs, err := queryDocuments(ctx, conn, query, args...)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			results = append(results, &doc.DocumentMetadata)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search by tags: %w", err)
	}
	return results, nil
}

// SetIndexStatus updates the index status marker of a document
func (s *SQLiteStorage) SetIndexStatus(ctx context.Context, filename string, status IndexStatus) error {
	return WithConn(ctx, s.db, func(conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx,
			`UPDATE documents SET index_status = ? WHERE filename = ?`, string(status), filename)
		if err != nil {
			return classifyError(fmt.Sprintf("set index status %s", filename), err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListByIndexStatus returns documents in any of the given statuses, by filename
func (s *SQLiteStorage) ListByIndexStatus(ctx context.Context, statuses ...IndexStatus) ([]*Document, error) {
	if len(statuses) == 0 {
		return []*Document{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE index_status IN (` + strings.Join(placeholders, ", ") + `) ORDER BY filename`

	var docs []*Document
	err := WithConn(ctx, s.db, func(conn *sql.Conn) error {
		var err error
		docs, err = queryDocuments(ctx, conn, query, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list by index status: %w", err)
	}
	return docs, nil
}

// ListFilenames returns every stored filename in order
func (s *SQLiteStorage) ListFilenames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := WithConn(ctx, s.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT filename FROM documents ORDER BY filename`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list filenames: %w", err)
	}
	return names, nil
}

// GetStatus returns document counts grouped by type and index status
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{
		ByType:        make(map[types.DocumentType]int),
		ByIndexStatus: make(map[IndexStatus]int),
	}

	err := WithConn(ctx, s.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT document_type, index_status, COUNT(*) FROM documents GROUP BY document_type, index_status`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var docType, indexStatus string
			var n int
			if err := rows.Scan(&docType, &indexStatus, &n); err != nil {
				return err
			}
			status.Documents += n
			status.ByType[types.DocumentType(docType)] += n
			status.ByIndexStatus[IndexStatus(indexStatus)] += n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	version, err := SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()
	return status, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc                     Document
		title, authCode, source sql.NullString
		size                    sql.NullInt64
		docType, access, status string
	)
	err := row.Scan(
		&doc.Filename, &doc.Author, &title, &doc.Language,
		&doc.CreatedAt, &doc.ModifiedAt, &doc.ModifiedBy,
		&docType, &doc.Tags, &access, &authCode, &size, &status, &source,
	)
	if err != nil {
		return nil, err
	}

	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.ModifiedAt = doc.ModifiedAt.UTC()
	doc.DocumentType = types.DocumentType(docType)
	doc.AccessLevel = types.AccessLevel(access)
	doc.IndexStatus = IndexStatus(status)
	if title.Valid {
		doc.Title = &title.String
	}
	if authCode.Valid {
		doc.AuthCode = &authCode.String
	}
	if size.Valid {
		doc.SizeBytes = &size.Int64
	}
	doc.SourcePath = source.String
	return &doc, nil
}

func queryDocuments(ctx context.Context, q Querier, query string, args ...interface{}) ([]*Document, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// classifyError maps SQLite constraint failures onto domain errors.
// Both drivers report the SQLite message text.
func classifyError(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	case strings.Contains(msg, "CHECK constraint failed"), strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, types.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
