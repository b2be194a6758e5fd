// internal/engine/splitter.go
package engine

import (
	"regexp"
	"strings"
)

var (
	triggerRegex = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:TEMP\s+|TEMPORARY\s+)?TRIGGER\b`)
	beginRegex   = regexp.MustCompile(`(?i)\bBEGIN\b`)
	endRegex     = regexp.MustCompile(`(?i)\bEND\b`)
)

// SplitStatements breaks a script into statements on top-level semicolons.
// Semicolons inside quoted strings, quoted identifiers, comments, dollar-quoted
// bodies and CREATE TRIGGER ... BEGIN ... END blocks do not terminate a
// statement. Statements are trimmed, lose their terminator, and blank or
// comment-only statements are dropped.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		hasCode    bool
	)

	flush := func() {
		if hasCode {
			statements = append(statements, strings.TrimSpace(current.String()))
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(script); {
		c := script[i]

		switch {
		case c == '\'' || c == '"' || c == '`':
			end := closingQuote(script, i, c)
			current.WriteString(script[i:end])
			hasCode = true
			i = end

		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script)
			} else {
				end += i
			}
			current.WriteString(script[i:end])
			i = end

		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				end = len(script)
			} else {
				end += i + 4
			}
			current.WriteString(script[i:end])
			i = end

		case c == '$':
			if tag, ok := dollarTag(script, i); ok {
				end := strings.Index(script[i+len(tag):], tag)
				if end < 0 {
					end = len(script)
				} else {
					end += i + 2*len(tag)
				}
				current.WriteString(script[i:end])
				hasCode = true
				i = end
				continue
			}
			current.WriteByte(c)
			hasCode = true
			i++

		case c == ';':
			if insideTriggerBody(current.String()) {
				current.WriteByte(c)
				i++
				continue
			}
			flush()
			i++

		default:
			if !isSpace(c) {
				hasCode = true
			}
			current.WriteByte(c)
			i++
		}
	}
	flush()

	return statements
}

// closingQuote returns the index just past the quote that closes the one at
// start. Doubled quotes are escapes.
func closingQuote(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// dollarTag recognises $$ and $name$ openers at position i.
func dollarTag(s string, i int) (string, bool) {
	if i > 0 && isIdentChar(s[i-1]) {
		return "", false
	}
	for j := i + 1; j < len(s); j++ {
		switch {
		case s[j] == '$':
			return s[i : j+1], true
		case !isIdentChar(s[j]) || (j == i+1 && s[j] >= '0' && s[j] <= '9'):
			return "", false
		}
	}
	return "", false
}

func insideTriggerBody(statement string) bool {
	if !triggerRegex.MatchString(statement) {
		return false
	}
	begins := len(beginRegex.FindAllStringIndex(statement, -1))
	ends := len(endRegex.FindAllStringIndex(statement, -1))
	return begins > ends
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

var rowKeywords = map[string]bool{
	"SELECT":  true,
	"VALUES":  true,
	"PRAGMA":  true,
	"EXPLAIN": true,
	"SHOW":    true,
	"TABLE":   true,
}

// cteVerbs are the statements a WITH clause can lead into.
var cteVerbs = map[string]bool{
	"SELECT": true,
	"VALUES": true,
	"TABLE":  true,
	"INSERT": true,
	"UPDATE": true,
	"DELETE": true,
	"MERGE":  true,
}

// ReturnsRows guesses whether a single statement produces a row set.
func ReturnsRows(statement string) bool {
	verb := leadingVerb(statement)
	if rowKeywords[verb] {
		return true
	}
	return hasReturning(statement)
}

// ReturnsModifiedRows reports whether statement is a data-modifying statement
// with a top-level RETURNING clause, whose rows are the affected rows.
func ReturnsModifiedRows(statement string) bool {
	verb := leadingVerb(statement)
	return !rowKeywords[verb] && verb != "" && hasReturning(statement)
}

// leadingVerb is the upper-cased first keyword of statement. For WITH it is
// the verb that follows the common table expressions.
func leadingVerb(statement string) string {
	verb := strings.ToUpper(firstKeyword(statement))
	if verb != "WITH" {
		return verb
	}
	verb = ""
	scanWords(statement, func(word string, depth int) bool {
		if depth > 0 {
			return true
		}
		if upper := strings.ToUpper(word); cteVerbs[upper] {
			verb = upper
			return false
		}
		return true
	})
	return verb
}

// hasReturning looks for RETURNING outside parentheses, quotes and comments.
func hasReturning(statement string) bool {
	found := false
	scanWords(statement, func(word string, depth int) bool {
		if depth == 0 && strings.EqualFold(word, "RETURNING") {
			found = true
			return false
		}
		return true
	})
	return found
}

// scanWords calls fn for every bare word of s with its parenthesis depth.
// Quoted strings, quoted identifiers, comments and dollar-quoted bodies are
// skipped. Scanning stops when fn returns false.
func scanWords(s string, fn func(word string, depth int) bool) {
	depth := 0
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = closingQuote(s, i, c)
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				return
			}
			i += nl + 1
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return
			}
			i += end + 4
		case c == '$':
			tag, ok := dollarTag(s, i)
			if !ok {
				i++
				continue
			}
			end := strings.Index(s[i+len(tag):], tag)
			if end < 0 {
				return
			}
			i += end + 2*len(tag)
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isIdentChar(c):
			j := i
			for j < len(s) && (isIdentChar(s[j]) || s[j] == '$') {
				j++
			}
			if !fn(s[i:j], depth) {
				return
			}
			i = j
		default:
			i++
		}
	}
}

// firstKeyword skips leading whitespace, comments and parentheses.
func firstKeyword(s string) string {
	i := 0
	for i < len(s) {
		switch {
		case isSpace(s[i]) || s[i] == '(':
			i++
		case strings.HasPrefix(s[i:], "--"):
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				return ""
			}
			i += nl + 1
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return ""
			}
			i += end + 4
		default:
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			return s[i:j]
		}
	}
	return ""
}
