// api/handlers/database_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workbench/api/models"
	"github.com/Annany2002/nebula-workbench/internal/core"
	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/samples"
	"github.com/Annany2002/nebula-workbench/internal/session"
)

// DatabaseHandler serves database lifecycle routes.
type DatabaseHandler struct {
	Session *session.Store
}

// NewDatabaseHandler creates a new DatabaseHandler.
func NewDatabaseHandler(s *session.Store) *DatabaseHandler {
	return &DatabaseHandler{Session: s}
}

// ListSamples lists the importable sample datasets.
func (h *DatabaseHandler) ListSamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"samples": samples.Catalog()})
}

// ListDatabases lists every known database.
func (h *DatabaseHandler) ListDatabases(c *gin.Context) {
	active, _ := h.Session.Active()

	list := h.Session.Databases()
	out := make([]models.DatabaseSummary, len(list))
	for i, db := range list {
		out[i] = models.DatabaseSummary{
			Name:         db.Name,
			Description:  db.Description,
			CreatedAt:    db.CreatedAt,
			HistoryCount: len(db.History),
			Active:       db.Name == active.Name,
		}
	}
	c.JSON(http.StatusOK, gin.H{"databases": out})
}

// CreateDatabase creates a database and makes it active.
func (h *DatabaseHandler) CreateDatabase(c *gin.Context) {
	var req models.CreateDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	db, err := h.Session.Create(c.Request.Context(), req.Name, req.Description)
	if abortOnError(c, err) {
		return
	}

	customLog.Printf("Handler: Created database '%s'", db.Name)
	c.JSON(http.StatusCreated, db)
}

// ImportDatabase creates a database from a sample dataset and makes it active.
func (h *DatabaseHandler) ImportDatabase(c *gin.Context) {
	var req models.ImportDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	db, err := h.Session.Import(c.Request.Context(), req.Sample, req.Description)
	if abortOnError(c, err) {
		return
	}

	customLog.Printf("Handler: Imported sample '%s' as '%s'", req.Sample, db.Name)
	c.JSON(http.StatusCreated, db)
}

// UpdateDatabase edits the description of a database.
func (h *DatabaseHandler) UpdateDatabase(c *gin.Context) {
	var req models.UpdateDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	db, err := h.Session.Update(c.Request.Context(), c.Param("db_name"), req.Description)
	if abortOnError(c, err) {
		return
	}
	c.JSON(http.StatusOK, db)
}

// DeleteDatabase removes a database and its storage.
func (h *DatabaseHandler) DeleteDatabase(c *gin.Context) {
	name := c.Param("db_name")
	if abortOnError(c, h.Session.Remove(c.Request.Context(), name)) {
		return
	}

	customLog.Printf("Handler: Removed database '%s'", name)
	c.Status(http.StatusNoContent)
}

// ConnectDatabase makes an existing database active.
func (h *DatabaseHandler) ConnectDatabase(c *gin.Context) {
	db, err := h.Session.Connect(c.Request.Context(), c.Param("db_name"))
	if abortOnError(c, err) {
		return
	}
	c.JSON(http.StatusOK, db)
}

// ListHistory returns one page of a database's history.
func (h *DatabaseHandler) ListHistory(c *gin.Context) {
	opts, err := core.ParseListQueryOptions(c.Request.URL.Query())
	if err != nil {
		_ = c.Error(domain.Wrap(domain.ErrInvalidInput, err))
		return
	}

	entries, total, err := h.Session.History(c.Param("db_name"), opts)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.HistoryPage{Entries: entries, Total: total, Limit: opts.Limit, Offset: opts.Offset})
}
