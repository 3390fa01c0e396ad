// Package storage provides SQLite-based persistence for document metadata,
// plus the SQLite plumbing (pool, migrations, driver selection) shared with
// the vector index.
//
// # Database Schema
//
// Tables:
//   - documents: one row per ingested document, keyed by a unique filename
//   - schema_version: applied migrations
//
// document_type is constrained to '.txt', '.md', '.pdf' and access_level to
// 'public', 'restricted', 'confidential'. index_status ('pending', 'indexed',
// 'unindexed') tracks the two-phase write: the relational row is written
// first, and the status flips once the vector write succeeds or fails.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("data/metadata.db", storage.Options{PoolSize: 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.Insert(ctx, meta); errors.Is(err, types.ErrDuplicateIdentity) {
//	    // already ingested
//	}
//	docs, err := store.SearchByTags(ctx, []string{"budget", "planning"})
//
// # Connection Pool
//
// Every operation borrows one connection from a bounded database/sql pool
// and returns it before the call ends, on success and on error:
//
//	err := storage.WithConn(ctx, db, func(conn *sql.Conn) error {
//	    _, err := conn.ExecContext(ctx, query, args...)
//	    return err
//	})
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Vector distance computed in SQL
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Vector distance computed in Go
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
