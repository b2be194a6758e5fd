// internal/introspect/queries.go
package introspect

import "github.com/Annany2002/nebula-workbench/internal/engine"

// catalogQueries holds the two catalog statements for one dialect.
//
// The schema query returns one row per column with:
// table_schema, table_type, table_name, column_name, data_type,
// character_maximum_length, is_nullable ('YES' | 'NO').
//
// The diagram query returns a single text column; joined with newlines the
// rows form a mermaid erDiagram document.
type catalogQueries struct {
	schema  string
	diagram string
}

var dialectQueries = map[string]catalogQueries{
	engine.DialectPostgres: {
		schema: `
	SELECT
		t.table_schema,
		t.table_type,
		t.table_name,
		c.column_name,
		c.data_type,
		c.character_maximum_length,
		c.is_nullable
	FROM information_schema.tables t
	JOIN information_schema.columns c
		ON c.table_schema = t.table_schema AND c.table_name = t.table_name
	ORDER BY t.table_schema, t.table_name, c.ordinal_position;`,

		// ER diagram query after Pavlo Golub,
		// https://www.cybertec-postgresql.com/en/er-diagrams-with-sql-and-mermaid/
		diagram: `
	SELECT 'erDiagram'
	UNION ALL
	SELECT
		FORMAT(E'\t%s{\n%s\n}',
			c.relname,
			STRING_AGG(FORMAT(E'\t\t~%s~ %s',
				FORMAT_TYPE(t.oid, a.atttypmod),
				a.attname
			), E'\n'))
	FROM
		pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_attribute a ON c.oid = a.attrelid AND a.attnum > 0 AND NOT a.attisdropped
		LEFT JOIN pg_type t ON a.atttypid = t.oid
	WHERE
		c.relkind IN ('r', 'p')
		AND NOT c.relispartition
		AND n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
	GROUP BY c.relname
	UNION ALL
	SELECT
		FORMAT('%s }|..|| %s : %s', c1.relname, c2.relname, c.conname)
	FROM
		pg_constraint c
		JOIN pg_class c1 ON c.conrelid = c1.oid AND c.contype = 'f'
		JOIN pg_class c2 ON c.confrelid = c2.oid
	WHERE
		NOT c1.relispartition AND NOT c2.relispartition;`,
	},

	// SQLite has a single user schema; it is reported as "public" so both
	// engines share one namespace convention. Internal sqlite_ tables are hidden.
	engine.DialectSQLite: {
		schema: `
	SELECT
		'public' AS table_schema,
		CASE m.type WHEN 'view' THEN 'VIEW' ELSE 'BASE TABLE' END AS table_type,
		m.name AS table_name,
		p.name AS column_name,
		p.type AS data_type,
		NULL AS character_maximum_length,
		CASE WHEN p."notnull" = 0 AND p.pk = 0 THEN 'YES' ELSE 'NO' END AS is_nullable
	FROM sqlite_master m
	JOIN pragma_table_info(m.name) p
	WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
	ORDER BY m.name, p.cid;`,

		diagram: `
	SELECT 'erDiagram'
	UNION ALL
	SELECT
		printf(char(9) || '%s{' || char(10) || '%s' || char(10) || '}',
			m.name,
			group_concat(printf(char(9) || char(9) || '~%s~ %s', p.type, p.name), char(10)))
	FROM sqlite_master m
	JOIN pragma_table_info(m.name) p
	WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
	GROUP BY m.name
	UNION ALL
	SELECT
		printf('%s }|..|| %s : fk_%s_%d', m.name, f."table", m.name, f.id)
	FROM sqlite_master m
	JOIN pragma_foreign_key_list(m.name) f
	WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
	GROUP BY m.name, f.id;`,
	},
}
