// internal/introspect/introspect.go
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/engine"
	"github.com/Annany2002/nebula-workbench/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// DefaultSchema is listed first in every schema tree.
const DefaultSchema = "public"

// internalSchemaPrefixes mark engine-owned schemas, listed last.
var internalSchemaPrefixes = []string{"pg_", "sqlite_"}

var charLengthRegex = regexp.MustCompile(`(?i)^\s*(?:var)?char(?:acter)?(?:\s+varying)?\s*\(\s*(\d+)\s*\)`)

func queriesFor(eng engine.Engine) (catalogQueries, error) {
	q, ok := dialectQueries[eng.Dialect()]
	if !ok {
		return catalogQueries{}, domain.Errorf(domain.ErrInvalidInput, "no catalog queries for dialect %q", eng.Dialect())
	}
	return q, nil
}

// GetSchema reads the engine catalog and groups tables by schema.
func GetSchema(ctx context.Context, eng engine.Engine) ([]domain.SchemaGroup, error) {
	q, err := queriesFor(eng)
	if err != nil {
		return nil, err
	}

	rows, err := eng.DB().QueryContext(ctx, q.schema)
	if err != nil {
		customLog.Warnf("Introspect: Schema query failed on '%s': %v", eng.Name(), err)
		return nil, domain.Wrap(domain.ErrEngine, err)
	}
	defer rows.Close()

	groups, err := groupSchemaRows(rows)
	if err != nil {
		customLog.Warnf("Introspect: Failed reading schema rows on '%s': %v", eng.Name(), err)
		return nil, domain.Wrap(domain.ErrEngine, err)
	}
	return groups, nil
}

func groupSchemaRows(rows *sql.Rows) ([]domain.SchemaGroup, error) {
	var groups []domain.SchemaGroup
	schemaIndex := map[string]int{}
	tableIndex := map[string]int{}

	for rows.Next() {
		var (
			schemaName, tableType, tableName, columnName string
			dataType, nullable                           sql.NullString
			length                                       sql.NullInt64
		)
		if err := rows.Scan(&schemaName, &tableType, &tableName, &columnName, &dataType, &length, &nullable); err != nil {
			return nil, fmt.Errorf("failed to parse catalog row: %w", err)
		}

		si, ok := schemaIndex[schemaName]
		if !ok {
			si = len(groups)
			schemaIndex[schemaName] = si
			groups = append(groups, domain.SchemaGroup{SchemaName: schemaName, Tables: []domain.Table{}})
		}

		key := schemaName + "." + tableName
		ti, ok := tableIndex[key]
		if !ok {
			ti = len(groups[si].Tables)
			tableIndex[key] = ti
			groups[si].Tables = append(groups[si].Tables, domain.Table{
				TableName: tableName,
				TableType: domain.TableType(tableType),
				Columns:   []domain.Column{},
			})
		}

		column := domain.Column{
			ColumnName: columnName,
			DataType:   dataType.String,
			Nullable:   strings.EqualFold(nullable.String, "YES"),
		}
		if length.Valid {
			n := length.Int64
			column.Length = &n
		} else if m := charLengthRegex.FindStringSubmatch(dataType.String); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				column.Length = &n
			}
		}
		groups[si].Tables[ti].Columns = append(groups[si].Tables[ti].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	SortSchemaGroups(groups)
	if groups == nil {
		groups = make([]domain.SchemaGroup, 0)
	}
	return groups, nil
}

// SortSchemaGroups orders groups with "public" first, engine-internal
// schemas last and everything else alphabetically.
func SortSchemaGroups(groups []domain.SchemaGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return schemaLess(groups[i].SchemaName, groups[j].SchemaName)
	})
}

func schemaLess(a, b string) bool {
	if a == DefaultSchema || b == DefaultSchema {
		return a == DefaultSchema && b != DefaultSchema
	}
	ai, bi := isInternalSchema(a), isInternalSchema(b)
	if ai != bi {
		return bi
	}
	return a < b
}

func isInternalSchema(name string) bool {
	for _, prefix := range internalSchemaPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// GetDiagramSource builds the mermaid erDiagram document for user tables and
// their foreign keys. Internal schemas and partitions are excluded.
func GetDiagramSource(ctx context.Context, eng engine.Engine) (string, error) {
	q, err := queriesFor(eng)
	if err != nil {
		return "", err
	}

	rows, err := eng.DB().QueryContext(ctx, q.diagram)
	if err != nil {
		customLog.Warnf("Introspect: Diagram query failed on '%s': %v", eng.Name(), err)
		return "", domain.Wrap(domain.ErrEngine, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line sql.NullString
		if err := rows.Scan(&line); err != nil {
			return "", domain.Wrap(domain.ErrEngine, fmt.Errorf("failed to parse diagram row: %w", err))
		}
		lines = append(lines, line.String)
	}
	if err := rows.Err(); err != nil {
		return "", domain.Wrap(domain.ErrEngine, err)
	}
	return strings.Join(lines, "\n"), nil
}

// Snapshot runs both catalog reads and returns only when both succeed.
func Snapshot(ctx context.Context, eng engine.Engine) ([]domain.SchemaGroup, string, error) {
	var (
		schema []domain.SchemaGroup
		erd    string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schema, err = GetSchema(gctx, eng)
		return err
	})
	g.Go(func() error {
		var err error
		erd, err = GetDiagramSource(gctx, eng)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return schema, erd, nil
}
