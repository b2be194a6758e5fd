// internal/session/database.go
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// database owns the mutable state of one logical database. Its fields are
// only reached through these methods.
type database struct {
	// run serializes executions so history stays in execution order.
	run sync.Mutex

	mu   sync.Mutex
	meta domain.DatabaseMetadata
}

func newDatabase(name, description string, createdAt time.Time, schema []domain.SchemaGroup, erd string) *database {
	return &database{meta: domain.DatabaseMetadata{
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
		History:     []domain.QueryLogEntry{},
		Schema:      schema,
		ERD:         erd,
	}}
}

func restoreDatabase(meta domain.DatabaseMetadata) *database {
	if meta.History == nil {
		meta.History = []domain.QueryLogEntry{}
	}
	if meta.Schema == nil {
		meta.Schema = []domain.SchemaGroup{}
	}
	meta.ResultSet = nil
	return &database{meta: meta}
}

// snapshot returns a copy safe to hand outside the store.
func (d *database) snapshot() domain.DatabaseMetadata {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.meta
	out.History = append([]domain.QueryLogEntry(nil), d.meta.History...)
	if out.History == nil {
		out.History = []domain.QueryLogEntry{}
	}
	return out
}

func (d *database) name() string {
	return d.meta.Name
}

func (d *database) describe(description string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Description = description
	d.meta.CreatedAt = at
}

func (d *database) setCatalog(schema []domain.SchemaGroup, erd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Schema = schema
	d.meta.ERD = erd
}

func (d *database) derivedFilter() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta.DerivedFilter
}

func (d *database) policyDocuments() (input, data json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta.PolicyInput, d.meta.PolicyData
}

// recordSuccess stores the executed text and results and appends entry.
func (d *database) recordSuccess(query string, grids []domain.DataGridValue, entry domain.QueryLogEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Query = query
	d.meta.ResultSet = grids
	d.meta.History = append(d.meta.History, entry)
}

// recordFailure stores the attempted text, clears the result set and
// appends entry.
func (d *database) recordFailure(query string, entry domain.QueryLogEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Query = query
	d.meta.ResultSet = []domain.DataGridValue{}
	d.meta.History = append(d.meta.History, entry)
}

func (d *database) recordEvaluation(source string, evaluated json.RawMessage, filter string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.PolicySource = source
	d.meta.PolicyEvaluated = evaluated
	d.meta.DerivedFilter = filter
}

func (d *database) setQuery(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Query = query
}

func (d *database) setPolicySource(source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.PolicySource = source
}

func (d *database) setPolicyInput(doc json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.PolicyInput = doc
}

func (d *database) setPolicyData(doc json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.PolicyData = doc
}
