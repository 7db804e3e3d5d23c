// Package ledger provides read and write access to a GnuCash book stored in
// its SQLite backend format.
package ledger

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/splitbook/splitbook/internal/common"
)

// SQLiteBook implements the service.Book interface over a GnuCash SQLite
// file. All reads are value snapshots; nothing lazily re-fetches.
type SQLiteBook struct {
	db   *sql.DB
	path string
}

// Open opens an existing GnuCash SQLite book. The file must already exist;
// splitbook never creates books.
func Open(path string) (*SQLiteBook, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: book path is empty", common.ErrInvalidConfig)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", common.ErrBookNotFound, path)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open book: %w", err)
	}

	// Single connection: reads are shared freely but writes must be
	// strictly ordered, and SQLite does not benefit from more.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open book %s: %w", path, err)
	}

	book := &SQLiteBook{db: db, path: path}
	if err := book.verifySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return book, nil
}

// verifySchema confirms the file carries the GnuCash table set.
func (b *SQLiteBook) verifySchema(ctx context.Context) error {
	for _, table := range []string{"accounts", "transactions", "splits", "commodities"} {
		var name string
		err := b.db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s is not a GnuCash SQLite book: missing table %q", b.path, table)
		}
		if err != nil {
			return fmt.Errorf("failed to inspect book schema: %w", err)
		}
	}
	return nil
}

// Path returns the location of the underlying book file.
func (b *SQLiteBook) Path() string {
	return b.path
}

// Close closes the database connection.
func (b *SQLiteBook) Close() error {
	return b.db.Close()
}

// newGUID returns a GnuCash-style 32-character hex identifier.
func newGUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate guid: %v", err))
	}
	return hex.EncodeToString(buf)
}
