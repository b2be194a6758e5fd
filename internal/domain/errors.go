// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrDuplicateName      = errors.New("duplicate database name")
	ErrNotFound           = errors.New("not found")
	ErrNoActiveConnection = errors.New("no active connection")
	ErrEmptyQuery         = errors.New("no query to run")
	ErrEngine             = errors.New("engine error")
	ErrPolicyEvaluation   = errors.New("policy evaluation failed")
	ErrStorage            = errors.New("storage error")
	ErrInvalidInput       = errors.New("invalid input")
)

var kindNames = map[error]string{
	ErrDuplicateName:      "duplicate_name",
	ErrNotFound:           "not_found",
	ErrNoActiveConnection: "no_active_connection",
	ErrEmptyQuery:         "empty_query",
	ErrEngine:             "engine",
	ErrPolicyEvaluation:   "policy_evaluation",
	ErrStorage:            "storage",
	ErrInvalidInput:       "invalid_input",
}

// Error is a failure tagged with one of the kinds above. Message is what the
// user sees; Err keeps the underlying cause for logs and errors.As.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// Errorf builds a tagged error with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind, keeping err's message verbatim. A nil err stays nil.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// KindName returns the stable tag for err's kind, or "internal".
func KindName(err error) string {
	var tagged *Error
	if errors.As(err, &tagged) {
		if name, ok := kindNames[tagged.Kind]; ok {
			return name
		}
	}
	for kind, name := range kindNames {
		if errors.Is(err, kind) {
			return name
		}
	}
	return "internal"
}
