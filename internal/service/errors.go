package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"platecost/internal/cost"
)

// Kind classifies service failures so transports can map them to status codes.
type Kind int

const (
	KindUnavailable Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	// KindDuplicateName is a Conflict on a unique name column.
	KindDuplicateName
	KindReferentialIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDuplicateName:
		return "duplicate_name"
	case KindReferentialIntegrity:
		return "referential_integrity"
	default:
		return "unavailable"
	}
}

// Sentinels for errors.Is checks against a service Error.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrReferentialIntegrity = &Error{Kind: KindReferentialIntegrity}
)

// Error is returned by every service operation that fails. Message is safe to show to
// API clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind. A duplicate name also counts as a conflict, and a referential
// integrity failure also counts as not found.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	switch {
	case t.Kind == e.Kind:
		return true
	case t.Kind == KindConflict && e.Kind == KindDuplicateName:
		return true
	case t.Kind == KindNotFound && e.Kind == KindReferentialIntegrity:
		return true
	}
	return false
}

// KindOf reports the Kind of err, defaulting to KindUnavailable for foreign errors.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnavailable
}

// MessageOf reports the client safe message of err.
func MessageOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Message != "" && svcErr.Kind != KindUnavailable {
		return svcErr.Message
	}
	return "Server error"
}

func invalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// checkAmount rejects values that do not fit the stored decimal columns.
func checkAmount(field string, value decimal.Decimal) error {
	if err := cost.CheckAmount(value); err != nil {
		return &Error{Kind: KindInvalidInput, Message: field + " is out of range", Err: err}
	}
	return nil
}

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Message: op, Err: err}
}
