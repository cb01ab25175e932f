package billing

import (
	"errors"
	"fmt"
)

// ErrorKind separates provider-side input validation from other upstream
// failures and plain transport failures, so handlers can map each to the
// right response without string-matching provider error fields.
type ErrorKind int

const (
	KindUpstream ErrorKind = iota
	KindInvalidInput
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNetwork:
		return "network"
	default:
		return "upstream"
	}
}

type Error struct {
	Kind ErrorKind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("billing: %s: %s", e.Kind, e.Msg)
	}
	if e.err != nil {
		return fmt.Sprintf("billing: %s: %v", e.Kind, e.err)
	}
	return "billing: " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, err: err}
}

// NewValidationError reports a provider-side input validation failure with a
// caller-facing message.
func NewValidationError(msg string) error {
	return newError(KindInvalidInput, msg, nil)
}

// KindOf reports the error kind, defaulting to KindUpstream for errors that
// did not originate in this package.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUpstream
}

// Detail returns the provider-facing message for validation failures, empty
// otherwise.
func Detail(err error) string {
	var be *Error
	if errors.As(err, &be) && be.Kind == KindInvalidInput {
		return be.Msg
	}
	return ""
}
