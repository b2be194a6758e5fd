// internal/kv/store.go
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Store is a durable string key-value store kept in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open initializes the store file under dir and ensures the 'kv_items' table exists.
func Open(dir, file string) (*Store, error) {
	dbPath := filepath.Join(dir, file)
	customLog.Printf("Storage: Initializing session store: %s", dbPath)

	// Ensure the data directory exists
	if err := os.MkdirAll(dir, 0o750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", dir, err)
		return nil, domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to create data directory: %w", err))
	}

	// WAL mode and busy timeout for 5s if db is busy
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("Storage: Failed to open session store '%s': %v", dbPath, err)
		return nil, domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to open session store: %w", err))
	}

	// Verify connection is working
	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		customLog.Warnf("Storage: Failed to ping session store '%s': %v", dbPath, err)
		return nil, domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to connect to session store: %w", err))
	}

	createItemsTableSQL := `
	CREATE TABLE IF NOT EXISTS kv_items (
		key TEXT PRIMARY KEY NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err = db.Exec(createItemsTableSQL); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to create kv_items table: %v", err)
		return nil, domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to ensure kv_items table: %w", err))
	}
	customLog.Println("Storage: kv_items table ensured.")

	return &Store{db: db}, nil
}

// GetItem returns the value for key; ok is false when the key is absent.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_items WHERE key = ? LIMIT 1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		customLog.Warnf("Storage: Failed to read key '%s': %v", key, err)
		return "", false, domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to read %s: %w", key, err))
	}
	return value, true, nil
}

// SetItem inserts or replaces the value for key.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	upsertSQL := `
	INSERT INTO kv_items (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	if _, err := s.db.ExecContext(ctx, upsertSQL, key, value); err != nil {
		customLog.Warnf("Storage: Failed to write key '%s': %v", key, err)
		return domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to write %s: %w", key, err))
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_items WHERE key = ?`, key); err != nil {
		customLog.Warnf("Storage: Failed to delete key '%s': %v", key, err)
		return domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

// Ping checks the underlying database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
