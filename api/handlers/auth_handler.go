// api/handlers/auth_handler.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Annany2002/nebula-workbench/api/models"
	"github.com/Annany2002/nebula-workbench/config"
	"github.com/Annany2002/nebula-workbench/internal/auth"
	"github.com/Annany2002/nebula-workbench/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// AuthHandler unlocks the workbench API when the access lock is enabled.
type AuthHandler struct {
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// Login checks the access password and issues a JWT on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Login binding error: %v", err)
		_ = c.Error(err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, h.Cfg.AccessPasswordHash) {
		customLog.Warnf("Login failed from %s", c.ClientIP())
		_ = c.Error(fmt.Errorf("%w: invalid password", auth.ErrUnauthorized))
		return
	}

	clientID := uuid.NewString()
	token, err := auth.GenerateJWT(clientID, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Login successful, issued token for client %s", clientID)
	c.JSON(http.StatusOK, models.LoginResponse{Message: "Login successful", Token: token})
}
