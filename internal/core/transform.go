// internal/core/transform.go
package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// columnTypes maps engine type names to grid column types. Anything not
// listed is displayed as a string.
var columnTypes = map[string]domain.ColumnType{
	"UUID":             domain.ColumnID,
	"CHAR":             domain.ColumnString,
	"BPCHAR":           domain.ColumnString,
	"BOOL":             domain.ColumnString,
	"BOOLEAN":          domain.ColumnString,
	"INT":              domain.ColumnNumber,
	"INT2":             domain.ColumnNumber,
	"INT4":             domain.ColumnNumber,
	"INT8":             domain.ColumnNumber,
	"INTEGER":          domain.ColumnNumber,
	"SMALLINT":         domain.ColumnNumber,
	"BIGINT":           domain.ColumnNumber,
	"FLOAT4":           domain.ColumnNumber,
	"FLOAT8":           domain.ColumnNumber,
	"REAL":             domain.ColumnNumber,
	"DOUBLE":           domain.ColumnNumber,
	"DOUBLE PRECISION": domain.ColumnNumber,
	"NUMERIC":          domain.ColumnNumber,
	"DECIMAL":          domain.ColumnNumber,
}

// ColumnTypeOf resolves an engine type name such as "int4" or "VARCHAR(20)".
func ColumnTypeOf(dataType string) domain.ColumnType {
	name := strings.ToUpper(strings.TrimSpace(dataType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if t, ok := columnTypes[name]; ok {
		return t
	}
	return domain.ColumnString
}

// TransformResults turns a raw engine batch into display grids. Statements
// without a row set are skipped. Input rows are not modified.
func TransformResults(batch []domain.RawResult) []domain.DataGridValue {
	grids := make([]domain.DataGridValue, 0, len(batch))
	for _, result := range batch {
		if !result.HasRows {
			continue
		}

		column := make(map[string]domain.ColumnType, len(result.Fields))
		for _, f := range result.Fields {
			column[f.Name] = ColumnTypeOf(f.DataType)
		}

		data := make([]map[string]any, 0, len(result.Rows))
		for _, row := range result.Rows {
			cells := make(map[string]any, len(row))
			for key, value := range row {
				cells[key] = displayValue(value, column[key])
			}
			data = append(data, cells)
		}

		grids = append(grids, domain.DataGridValue{Column: column, Data: data})
	}
	return grids
}

func displayValue(value any, colType domain.ColumnType) any {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case string:
		return v
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	}

	if colType == domain.ColumnID {
		return fmt.Sprint(value)
	}
	return value
}
