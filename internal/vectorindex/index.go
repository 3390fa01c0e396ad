package vectorindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/pkg/types"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the collection's
	ErrDimensionMismatch = errors.New("vector dimension does not match index")
	// ErrInvalidBatch is returned for malformed AddBatch input
	ErrInvalidBatch = errors.New("invalid batch")
)

// Document identifies one vector record: the document id (its filename) and
// the raw text the vector was computed from.
type Document struct {
	ID      string
	RawText string
}

// Hit is one nearest-neighbour result
type Hit struct {
	ID       string
	Distance float64
	RawText  string
}

// Collection describes a named index
type Collection struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures the index database
type Options struct {
	PoolSize int
}

// Index is a SQLite-backed vector similarity index
type Index struct {
	db *sql.DB
}

// New opens (or creates) the vector database at dbPath
func New(dbPath string, opts Options) (*Index, error) {
	db, err := storage.Open(dbPath, opts.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	if err := storage.ApplyMigrations(context.Background(), db, Migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply vector migrations: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the connection pool
func (x *Index) Close() error {
	return x.db.Close()
}

// AddBatch upserts vectors into the named index, creating it bound to model
// on first use. docs and vectors are matched by position.
func (x *Index) AddBatch(ctx context.Context, name, model string, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%w: %d documents but %d vectors", ErrInvalidBatch, len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	if name == "" || model == "" {
		return fmt.Errorf("%w: index name and model are required", ErrInvalidBatch)
	}

	dim := len(vectors[0])
	for i := range docs {
		if docs[i].ID == "" {
			return fmt.Errorf("%w: empty document id at %d", ErrInvalidBatch, i)
		}
		if len(vectors[i]) == 0 || len(vectors[i]) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, batch uses %d", ErrDimensionMismatch, i, len(vectors[i]), dim)
		}
	}

	return storage.WithTx(ctx, x.db, func(tx *sql.Tx) error {
		if err := ensureCollection(ctx, tx, name, model, dim); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vectors (collection, document_id, vector, raw_text, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(collection, document_id) DO UPDATE SET
				vector = excluded.vector,
				raw_text = excluded.raw_text,
				updated_at = excluded.updated_at`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now().UTC()
		for i, doc := range docs {
			if _, err := stmt.ExecContext(ctx, name, doc.ID, serializeVector(vectors[i]), doc.RawText, now); err != nil {
				return fmt.Errorf("upsert %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}

// Query returns up to k records of the named index closest to vector, in
// ascending distance with ties broken by id. A missing index yields an empty
// result and types.ErrIndexNotFound.
func (x *Index) Query(ctx context.Context, name, model string, vector []float32, k int) ([]Hit, error) {
	var hits []Hit
	err := storage.WithConn(ctx, x.db, func(conn *sql.Conn) error {
		coll, err := getCollection(ctx, conn, name)
		if err != nil {
			return err
		}
		if coll.Model != model {
			return fmt.Errorf("%w: index %q uses %q, query uses %q", types.ErrModelMismatch, name, coll.Model, model)
		}
		if len(vector) != coll.Dimension {
			return fmt.Errorf("%w: index %q has dimension %d, query has %d", ErrDimensionMismatch, name, coll.Dimension, len(vector))
		}
		if k <= 0 {
			hits = []Hit{}
			return nil
		}
		hits, err = searchVector(ctx, conn, name, vector, k)
		return err
	})
	if errors.Is(err, types.ErrIndexNotFound) {
		return []Hit{}, err
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// IDs returns every document id in the named index, sorted
func (x *Index) IDs(ctx context.Context, name string) ([]string, error) {
	ids := make([]string, 0)
	err := storage.WithConn(ctx, x.db, func(conn *sql.Conn) error {
		if _, err := getCollection(ctx, conn, name); err != nil {
			return err
		}
		rows, err := conn.QueryContext(ctx,
			`SELECT document_id FROM vectors WHERE collection = ? ORDER BY document_id`, name)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return ids, err
	}
	return ids, nil
}

// Collection returns the description of the named index
func (x *Index) Collection(ctx context.Context, name string) (*Collection, error) {
	var coll *Collection
	err := storage.WithConn(ctx, x.db, func(conn *sql.Conn) error {
		var err error
		coll, err = getCollection(ctx, conn, name)
		if err != nil {
			return err
		}
		return conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vectors WHERE collection = ?`, name).Scan(&coll.Count)
	})
	if err != nil {
		return nil, err
	}
	return coll, nil
}

// Collections lists every index with its record count
func (x *Index) Collections(ctx context.Context) ([]Collection, error) {
	colls := make([]Collection, 0)
	err := storage.WithConn(ctx, x.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT c.name, c.model, c.dimension, c.created_at, COUNT(v.document_id)
			FROM collections c
			LEFT JOIN vectors v ON v.collection = c.name
			GROUP BY c.name, c.model, c.dimension, c.created_at
			ORDER BY c.name`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var c Collection
			if err := rows.Scan(&c.Name, &c.Model, &c.Dimension, &c.CreatedAt, &c.Count); err != nil {
				return err
			}
			colls = append(colls, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return colls, nil
}

func getCollection(ctx context.Context, q storage.Querier, name string) (*Collection, error) {
	coll := &Collection{Name: name}
	err := q.QueryRowContext(ctx,
		`SELECT model, dimension, created_at FROM collections WHERE name = ?`, name,
	).Scan(&coll.Model, &coll.Dimension, &coll.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", types.ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", name, err)
	}
	return coll, nil
}

// ensureCollection creates the collection on first use and checks its
// model and dimension binding afterwards.
func ensureCollection(ctx context.Context, q storage.Querier, name, model string, dim int) error {
	coll, err := getCollection(ctx, q, name)
	if errors.Is(err, types.ErrIndexNotFound) {
		_, err = q.ExecContext(ctx,
			`INSERT INTO collections (name, model, dimension, created_at) VALUES (?, ?, ?, ?)`,
			name, model, dim, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("create collection %q: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if coll.Model != model {
		return fmt.Errorf("%w: index %q uses %q, batch uses %q", types.ErrModelMismatch, name, coll.Model, model)
	}
	if coll.Dimension != dim {
		return fmt.Errorf("%w: index %q has dimension %d, batch has %d", ErrDimensionMismatch, name, coll.Dimension, dim)
	}
	return nil
}
