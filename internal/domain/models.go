// internal/domain/models.go
package domain

import (
	"encoding/json"
	"time"
)

// TableType distinguishes base tables from views in the schema tree.
type TableType string

const (
	BaseTable TableType = "BASE TABLE"
	View      TableType = "VIEW"
)

// ColumnType is the display type of a result grid column.
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnNumber ColumnType = "number"
	ColumnID     ColumnType = "id"
)

// Column describes one catalog column.
type Column struct {
	ColumnName string `json:"column"`
	DataType   string `json:"type"`
	Length     *int64 `json:"length,omitempty"`
	Nullable   bool   `json:"nullable"`
}

// Table describes one table or view and its columns.
type Table struct {
	TableName string    `json:"table"`
	TableType TableType `json:"type"`
	Columns   []Column  `json:"columns"`
}

// SchemaGroup is every table belonging to one schema.
type SchemaGroup struct {
	SchemaName string  `json:"schema"`
	Tables     []Table `json:"tables"`
}

// StatementResult summarises one statement of an executed batch.
type StatementResult struct {
	AffectedRows int64 `json:"affectedRows"`
	TotalRecords int   `json:"totalRecords"`
}

// QueryLogEntry is one immutable history record. Exactly one of Results
// and Error is set.
type QueryLogEntry struct {
	Statement           string            `json:"statement"`
	StatementWithFilter string            `json:"statementWithFilter,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	ExecutionTime       float64           `json:"executionTime"`
	Results             []StatementResult `json:"results,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// Failed reports whether the entry records an execution error.
func (e QueryLogEntry) Failed() bool {
	return e.Error != ""
}

// DataGridValue is one display-ready result set.
type DataGridValue struct {
	Column map[string]ColumnType `json:"column"`
	Data   []map[string]any      `json:"data"`
}

// DatabaseMetadata is the persisted and API-facing view of a logical database.
type DatabaseMetadata struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	History         []QueryLogEntry `json:"history"`
	Schema          []SchemaGroup   `json:"schema"`
	ERD             string          `json:"erd"`
	Query           string          `json:"query,omitempty"`
	PolicySource    string          `json:"policySource,omitempty"`
	PolicyInput     json.RawMessage `json:"policyInput,omitempty"`
	PolicyData      json.RawMessage `json:"policyData,omitempty"`
	PolicyEvaluated json.RawMessage `json:"policyEvaluated,omitempty"`
	DerivedFilter   string          `json:"derivedFilter,omitempty"`
	ResultSet       []DataGridValue `json:"-"`
}

// SampleDataset is one entry of the sample catalog.
type SampleDataset struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Field is a result column as reported by the engine.
type Field struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// RawResult is the engine's output for one statement of a batch. HasRows is
// false for statements that produce no row set.
type RawResult struct {
	AffectedRows int64            `json:"affectedRows"`
	Fields       []Field          `json:"fields"`
	Rows         []map[string]any `json:"rows"`
	HasRows      bool             `json:"hasRows"`
}

// Summary reduces r to its history representation.
func (r RawResult) Summary() StatementResult {
	return StatementResult{AffectedRows: r.AffectedRows, TotalRecords: len(r.Rows)}
}
