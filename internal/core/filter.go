// internal/core/filter.go
package core

import (
	"strings"
)

const wherePrefix = "WHERE "

// CombineFilter splices a policy-derived "WHERE <predicate>" fragment onto the
// end of statement. An empty filter returns statement untouched.
//
// The splice is textual: the predicate is appended after any trailing
// ORDER BY, GROUP BY, LIMIT or comment, so it is only correct for statements
// whose last clause is FROM/JOIN/WHERE. A statement that mentions "where"
// anywhere (even inside an identifier or literal) gets " AND <predicate>".
func CombineFilter(statement, filter string) string {
	if filter == "" {
		return statement
	}

	combined := strings.TrimRight(statement, " \t\r\n")
	if strings.HasSuffix(combined, ";") {
		combined = strings.TrimRight(strings.TrimSuffix(combined, ";"), " \t\r\n")
	}

	predicate := filter
	if len(filter) >= len(wherePrefix) && strings.EqualFold(filter[:len(wherePrefix)], wherePrefix) {
		predicate = filter[len(wherePrefix):]
	}

	if strings.Contains(strings.ToLower(combined), "where") {
		return combined + " AND " + predicate
	}
	return combined + " WHERE " + predicate
}
