// internal/engine/postgres.go
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// PostgresOpener maps each logical database to a Postgres database of the
// same name on the server reached through AdminDSN.
type PostgresOpener struct {
	AdminDSN string
}

func NewPostgresOpener(adminDSN string) (*PostgresOpener, error) {
	if _, err := pgx.ParseConfig(adminDSN); err != nil {
		return nil, domain.Errorf(domain.ErrInvalidInput, "invalid postgres DSN: %v", err)
	}
	return &PostgresOpener{AdminDSN: adminDSN}, nil
}

func (o *PostgresOpener) Dialect() string { return DialectPostgres }

// ConnectionString is AdminDSN with the database switched to name.
func (o *PostgresOpener) ConnectionString(name string) string {
	if u, err := url.Parse(o.AdminDSN); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		u.Path = "/" + name
		return u.String()
	}
	return strings.TrimSpace(o.AdminDSN) + " dbname=" + name
}

// Open creates the database on first use, then connects to it.
func (o *PostgresOpener) Open(ctx context.Context, name string) (Engine, error) {
	if err := o.ensureDatabase(ctx, name); err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(o.ConnectionString(name))
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidInput, "invalid postgres DSN: %v", err)
	}

	customLog.Printf("Engine: Opening postgres database '%s' on %s", name, cfg.Host)
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		customLog.Warnf("Engine: Failed to ping postgres database '%s': %v", name, err)
		return nil, domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to connect to database: %w", err))
	}
	db.SetMaxOpenConns(4)

	return NewSQLEngine(name, DialectPostgres, db), nil
}

// Remove drops the database, disconnecting any remaining sessions.
func (o *PostgresOpener) Remove(ctx context.Context, name string) error {
	admin, err := o.admin(ctx)
	if err != nil {
		return err
	}
	defer admin.Close()

	dropSQL := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{name}.Sanitize())
	if _, err := admin.ExecContext(ctx, dropSQL); err != nil {
		customLog.Warnf("Engine: Failed to drop postgres database '%s': %v", name, err)
		return domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to drop database: %w", err))
	}
	customLog.Printf("Engine: Dropped postgres database '%s'", name)
	return nil
}

func (o *PostgresOpener) ensureDatabase(ctx context.Context, name string) error {
	admin, err := o.admin(ctx)
	if err != nil {
		return err
	}
	defer admin.Close()

	var exists bool
	err = admin.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to look up database: %w", err))
	}
	if exists {
		return nil
	}

	createSQL := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{name}.Sanitize())
	if _, err := admin.ExecContext(ctx, createSQL); err != nil {
		customLog.Warnf("Engine: Failed to create postgres database '%s': %v", name, err)
		return domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to create database: %w", err))
	}
	customLog.Printf("Engine: Created postgres database '%s'", name)
	return nil
}

func (o *PostgresOpener) admin(ctx context.Context) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(o.AdminDSN)
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidInput, "invalid postgres DSN: %v", err)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to reach postgres server: %w", err))
	}
	return db, nil
}
