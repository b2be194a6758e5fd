// api/models/auth_models.go
package models

import "github.com/golang-jwt/jwt/v5"

// --- Auth Request/Response Structs ---

// LoginRequest defines the structure for the access lock login body
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginResponse defines the structure for the login response body
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// --- JWT Claims ---

// CustomClaims includes standard claims and the workbench client id
type CustomClaims struct {
	ClientID string `json:"clientID"`
	jwt.RegisteredClaims
}
