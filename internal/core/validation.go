// internal/core/validation.go
package core

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Regular expression for valid database names (alphanumeric + underscore).
// Names end up as file names and Postgres database names.
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// MaxIdentifierLength bounds database names.
const MaxIdentifierLength = 64

// IsValidIdentifier checks if a string is a valid identifier (e.g., database name, sample key)
// Applies basic format and length checks.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= MaxIdentifierLength
}

// IsBlank reports whether a statement is empty once whitespace is removed.
func IsBlank(query string) bool {
	return strings.TrimSpace(query) == ""
}

// IsJSONObject reports whether raw holds a single JSON object.
func IsJSONObject(raw []byte) bool {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	return obj != nil
}
