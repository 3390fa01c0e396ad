package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// DefaultPoolSize bounds the number of open connections per database
	DefaultPoolSize = 4

	// BusyTimeoutMs is how long a connection waits on a locked database
	BusyTimeoutMs = 5000

	memoryPath = ":memory:"
)

// Querier is implemented by *sql.DB, *sql.Conn and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open opens a SQLite database with a bounded connection pool.
// An in-memory database is limited to one connection so every caller sees
// the same data.
func Open(path string, poolSize int) (*sql.DB, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	source := dsn(path)
	if path == memoryPath {
		source = memoryPath
		poolSize = 1
	}

	db, err := sql.Open(DriverName, source)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// WithConn borrows one connection from the pool for the duration of fn and
// returns it on every exit path.
func WithConn(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// WithTx runs fn inside a transaction on a borrowed connection.
// The transaction is rolled back when fn fails.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return WithConn(ctx, db, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}
