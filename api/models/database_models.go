// api/models/database_models.go
package models

import (
	"time"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// --- Database Request Structs ---

// CreateDatabaseRequest defines the structure for creating a database
type CreateDatabaseRequest struct {
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=500"`
}

// ImportDatabaseRequest defines the structure for importing a sample dataset
type ImportDatabaseRequest struct {
	Sample      string `json:"sample" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateDatabaseRequest defines the structure for editing database metadata
type UpdateDatabaseRequest struct {
	Description string `json:"description" binding:"max=500"`
}

// --- Database Response Structs ---

// DatabaseSummary is one row of the database listing
type DatabaseSummary struct {
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	HistoryCount int       `json:"historyCount"`
	Active       bool      `json:"active"`
}

// HistoryPage is one page of a database's query history
type HistoryPage struct {
	Entries []domain.QueryLogEntry `json:"entries"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}
