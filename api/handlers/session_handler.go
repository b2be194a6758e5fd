// api/handlers/session_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workbench/api/models"
	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/session"
)

// WarningHeader carries non-fatal problems with an otherwise successful request.
const WarningHeader = "X-Workbench-Warning"

// SessionHandler serves routes acting on the active database.
type SessionHandler struct {
	Session *session.Store
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s *session.Store) *SessionHandler {
	return &SessionHandler{Session: s}
}

// GetSession describes the active connection, if any.
func (h *SessionHandler) GetSession(c *gin.Context) {
	db, ok := h.Session.Active()
	if !ok {
		c.JSON(http.StatusOK, models.SessionResponse{})
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{Active: db.Name, Database: &db})
}

// Reload refreshes the schema and diagram of the active database.
func (h *SessionHandler) Reload(c *gin.Context) {
	db, err := h.Session.Reload(c.Request.Context())
	if abortOnError(c, err) {
		return
	}
	c.JSON(http.StatusOK, db)
}

// Execute runs SQL against the active database.
func (h *SessionHandler) Execute(c *gin.Context) {
	var req models.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	out, err := h.Session.Execute(c.Request.Context(), req.Query, req.Filtered)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := models.ExecuteResponse{
		Results: make([]domain.StatementResult, len(out.Results)),
		Grids:   out.Grids,
	}
	for i, r := range out.Results {
		resp.Results[i] = r.Summary()
	}
	c.JSON(http.StatusOK, resp)
}

// Evaluate compiles a rule program into the active database's filter.
func (h *SessionHandler) Evaluate(c *gin.Context) {
	var req models.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	eval, err := h.Session.Evaluate(c.Request.Context(), req.Policy)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.EvaluateResponse{Filter: eval.Query, Evaluated: eval.Raw})
}

// SetQuery stores editor text for the active database.
func (h *SessionHandler) SetQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	if abortOnError(c, h.Session.SetQuery(c.Request.Context(), req.Query)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPolicySource stores a rule program without evaluating it.
func (h *SessionHandler) SetPolicySource(c *gin.Context) {
	var req models.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	if abortOnError(c, h.Session.SetPolicySource(c.Request.Context(), req.Policy)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPolicyInput stores the raw JSON body as the evaluation input.
func (h *SessionHandler) SetPolicyInput(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		_ = c.Error(domain.Wrap(domain.ErrInvalidInput, err))
		return
	}
	if abortOnError(c, h.Session.SetPolicyInput(c.Request.Context(), body)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPolicyData stores the raw JSON body as the evaluation data.
func (h *SessionHandler) SetPolicyData(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		_ = c.Error(domain.Wrap(domain.ErrInvalidInput, err))
		return
	}
	if abortOnError(c, h.Session.SetPolicyData(c.Request.Context(), body)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSchema returns the cached schema tree of the active database.
func (h *SessionHandler) GetSchema(c *gin.Context) {
	db, ok := h.Session.Active()
	if !ok {
		_ = c.Error(domain.Errorf(domain.ErrNoActiveConnection, "no active connection"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"schema": db.Schema})
}

// GetDiagram returns the cached diagram source of the active database.
func (h *SessionHandler) GetDiagram(c *gin.Context) {
	db, ok := h.Session.Active()
	if !ok {
		_ = c.Error(domain.Errorf(domain.ErrNoActiveConnection, "no active connection"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"erd": db.ERD})
}

// GetResults returns the last result grids of the active database.
func (h *SessionHandler) GetResults(c *gin.Context) {
	db, ok := h.Session.Active()
	if !ok {
		_ = c.Error(domain.Errorf(domain.ErrNoActiveConnection, "no active connection"))
		return
	}
	grids := db.ResultSet
	if grids == nil {
		grids = []domain.DataGridValue{}
	}
	c.JSON(http.StatusOK, gin.H{"grids": grids})
}

// abortOnError reports err through the error handler and returns true. A
// change that was applied but not saved is not a failure: the response goes
// ahead with a warning header instead.
func abortOnError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if session.IsUnsaved(err) {
		customLog.Warnf("Handler: %s %s applied but not saved: %v", c.Request.Method, c.FullPath(), err)
		c.Header(WarningHeader, "session state was not saved")
		return false
	}
	_ = c.Error(err)
	return true
}
