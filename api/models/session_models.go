// api/models/session_models.go
package models

import (
	"encoding/json"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// --- Session Request Structs ---

// ExecuteRequest runs SQL against the active database
type ExecuteRequest struct {
	Query    string `json:"query"`
	Filtered bool   `json:"filtered"`
}

// QueryRequest stores editor text without running it
type QueryRequest struct {
	Query string `json:"query"`
}

// PolicyRequest carries a rule program
type PolicyRequest struct {
	Policy string `json:"policy" binding:"required"`
}

// --- Session Response Structs ---

// SessionResponse describes the active connection
type SessionResponse struct {
	Active   string                   `json:"active,omitempty"`
	Database *domain.DatabaseMetadata `json:"database,omitempty"`
}

// ExecuteResponse holds the per-statement summaries and display grids
type ExecuteResponse struct {
	Results []domain.StatementResult `json:"results"`
	Grids   []domain.DataGridValue   `json:"grids"`
}

// EvaluateResponse holds the compiled filter and the raw evaluator response
type EvaluateResponse struct {
	Filter    string          `json:"filter"`
	Evaluated json.RawMessage `json:"evaluated"`
}
