// internal/engine/engine.go
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Dialect names understood by the schema introspector.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Engine is a live handle on one logical database.
type Engine interface {
	// Name is the logical database name the handle is bound to.
	Name() string
	Dialect() string
	// Exec runs every statement in script and returns one result per statement.
	Exec(ctx context.Context, script string) ([]domain.RawResult, error)
	// DB exposes the pool for catalog queries.
	DB() *sql.DB
	Close() error
}

// Opener creates engine handles. The same name always maps to the same
// underlying storage, so reopening a name reattaches to its data.
type Opener interface {
	Dialect() string
	ConnectionString(name string) string
	Open(ctx context.Context, name string) (Engine, error)
	// Remove deletes the storage behind name. Missing storage is not an error.
	Remove(ctx context.Context, name string) error
}

// SQLEngine implements Engine over a database/sql pool.
type SQLEngine struct {
	name    string
	dialect string
	db      *sql.DB
}

// NewSQLEngine wraps an already opened pool.
func NewSQLEngine(name, dialect string, db *sql.DB) *SQLEngine {
	return &SQLEngine{name: name, dialect: dialect, db: db}
}

func (e *SQLEngine) Name() string    { return e.name }
func (e *SQLEngine) Dialect() string { return e.dialect }
func (e *SQLEngine) DB() *sql.DB     { return e.db }

// Close releases the pool. Closing twice is harmless.
func (e *SQLEngine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// Exec splits script into statements and runs them inside one transaction,
// so a failing statement leaves no partial batch behind. Engine failures keep
// the driver's message verbatim.
func (e *SQLEngine) Exec(ctx context.Context, script string) ([]domain.RawResult, error) {
	if e.db == nil {
		return nil, domain.Errorf(domain.ErrNoActiveConnection, "engine for %s is closed", e.name)
	}

	statements := SplitStatements(script)
	if len(statements) == 0 {
		return nil, domain.Errorf(domain.ErrEmptyQuery, "no query to run")
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		customLog.Warnf("Engine: Failed to begin transaction on '%s': %v", e.name, err)
		return nil, domain.Wrap(domain.ErrEngine, err)
	}

	results := make([]domain.RawResult, 0, len(statements))
	for _, stmt := range statements {
		result, err := runStatement(ctx, tx, stmt)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				customLog.Warnf("Engine: Rollback failed on '%s': %v", e.name, rbErr)
			}
			customLog.Debugf("Engine: Statement failed on '%s': %v\nSQL: %s", e.name, err, stmt)
			return nil, domain.Wrap(domain.ErrEngine, err)
		}
		results = append(results, result)
	}

	if err := tx.Commit(); err != nil {
		customLog.Warnf("Engine: Commit failed on '%s': %v", e.name, err)
		return nil, domain.Wrap(domain.ErrEngine, err)
	}
	return results, nil
}

func runStatement(ctx context.Context, tx *sql.Tx, stmt string) (domain.RawResult, error) {
	if !ReturnsRows(stmt) {
		res, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return domain.RawResult{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return domain.RawResult{AffectedRows: affected}, nil
	}

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return domain.RawResult{}, err
	}
	defer rows.Close()

	result, err := ScanRows(rows)
	if err != nil {
		return domain.RawResult{}, err
	}
	if ReturnsModifiedRows(stmt) {
		result.AffectedRows = int64(len(result.Rows))
	}
	return result, nil
}

// ScanRows reads every row into column-name keyed maps.
func ScanRows(rows *sql.Rows) (domain.RawResult, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return domain.RawResult{}, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := domain.RawResult{
		HasRows: true,
		Fields:  make([]domain.Field, len(columnTypes)),
		Rows:    make([]map[string]any, 0),
	}
	for i, ct := range columnTypes {
		result.Fields[i] = domain.Field{Name: ct.Name(), DataType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(columnTypes))
		pointers := make([]any, len(columnTypes))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return domain.RawResult{}, fmt.Errorf("failed to scan result row: %w", err)
		}

		row := make(map[string]any, len(columnTypes))
		for i, f := range result.Fields {
			row[f.Name] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.RawResult{}, err
	}
	return result, nil
}
