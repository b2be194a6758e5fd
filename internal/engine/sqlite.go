// internal/engine/sqlite.go
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// SQLiteOpener keeps one SQLite file per logical database under Dir.
type SQLiteOpener struct {
	Dir string
}

// NewSQLiteOpener creates the storage directory if needed.
func NewSQLiteOpener(dir string) (*SQLiteOpener, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		customLog.Warnf("Engine: Error creating engine directory '%s': %v", dir, err)
		return nil, domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to create engine directory: %w", err))
	}
	return &SQLiteOpener{Dir: dir}, nil
}

func (o *SQLiteOpener) Dialect() string { return DialectSQLite }

// FilePath is the database file backing name.
func (o *SQLiteOpener) FilePath(name string) string {
	return filepath.Join(o.Dir, name+".db")
}

// ConnectionString is the driver DSN for name: foreign keys on, WAL mode and a 5s busy timeout.
func (o *SQLiteOpener) ConnectionString(name string) string {
	return o.FilePath(name) + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

// Open opens and pings the file for name, creating it when absent.
// The caller is responsible for closing the engine.
func (o *SQLiteOpener) Open(ctx context.Context, name string) (Engine, error) {
	customLog.Printf("Engine: Opening sqlite database '%s'", name)
	db, err := sql.Open("sqlite3", o.ConnectionString(name))
	if err != nil {
		customLog.Warnf("Engine: Failed to open sqlite file for '%s': %v", name, err)
		return nil, domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to access database storage: %w", err))
	}

	// Ping to verify connection
	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close if ping fails
		customLog.Warnf("Engine: Failed to ping sqlite database '%s': %v", name, err)
		return nil, domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to connect to database storage: %w", err))
	}

	// One connection: the handle is used by one session and sqlite serialises writers anyway
	db.SetMaxOpenConns(1)

	return NewSQLEngine(name, DialectSQLite, db), nil
}

// Remove deletes the database file and its WAL companions.
func (o *SQLiteOpener) Remove(_ context.Context, name string) error {
	path := o.FilePath(name)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Engine: Failed to delete '%s': %v", p, err)
			return domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to delete database storage: %w", err))
		}
	}
	customLog.Printf("Engine: Removed sqlite storage for '%s'", name)
	return nil
}
