// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10" // Import validator for binding errors

	"github.com/Annany2002/nebula-workbench/internal/auth"
	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// We only handle the last error for the response.
		err := c.Errors.Last().Err
		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		statusCode, userMessage, kind := classify(err)

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage, "kind": kind})
		} else {
			customLog.Warnf("[ErrorHandler] Response already written before handling error.")
		}
	}
}

// classify maps an error to its HTTP status, user message and kind tag.
func classify(err error) (int, string, string) {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error(), domain.KindName(err)
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrNoActiveConnection):
		return http.StatusConflict, err.Error(), domain.KindName(err)
	case errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error(), domain.KindName(err)
	case errors.Is(err, domain.ErrEngine):
		// Engine messages are shown verbatim so the user sees the SQL error
		return http.StatusUnprocessableEntity, err.Error(), domain.KindName(err)
	case errors.Is(err, domain.ErrPolicyEvaluation):
		return http.StatusBadGateway, err.Error(), domain.KindName(err)
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError, "Failed to persist session state.", domain.KindName(err)
	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenClaimsInvalid),
		errors.Is(err, auth.ErrUnexpectedSigningMethod):
		return http.StatusUnauthorized, "Invalid or malformed authentication token.", "unauthorized"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "Authentication token has expired.", "unauthorized"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error(), "unauthorized"
	case errors.As(err, &validationErrs):
		for _, fe := range validationErrs {
			customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
		}
		return http.StatusBadRequest, "Validation failed. Please check your input.", domain.KindName(domain.ErrInvalidInput)
	default:
		customLog.Warnf("Unhandled error type: %T, Error: %v", err, err)
		return http.StatusInternalServerError, "An unexpected internal server error occurred.", "internal"
	}
}
