// Package rdmerr provides the structured error type shared by every rdm
// component. Each component owns a static prefix and builds its errors
// through one of three rendering rules: literal text, delegation to a
// nested error, or templated interpolation.
package rdmerr

import (
	"errors"
	"fmt"
)

// Kind categorizes the type of error.
type Kind int

const (
	KindUnknown Kind = iota
	MissingLedger
	NoChangesToSave
	HeadDetached
	RemoteAlreadyExists
	RemoteNotFound
	TransportFailure
	StorageFailure
	LedgerFailure
	ScriptFailure
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case MissingLedger:
		return "missing ledger"
	case NoChangesToSave:
		return "no changes to save"
	case HeadDetached:
		return "head detached"
	case RemoteAlreadyExists:
		return "remote already exists"
	case RemoteNotFound:
		return "remote not found"
	case TransportFailure:
		return "transport failure"
	case StorageFailure:
		return "storage failure"
	case LedgerFailure:
		return "ledger failure"
	case ScriptFailure:
		return "script failure"
	case InvalidInput:
		return "invalid input"
	default:
		return "unknown error"
	}
}

// Error is the structured error type for rdm.
type Error struct {
	Prefix Component // Component that produced the error
	Kind   Kind      // Category of error
	Text   string    // Rendered message; empty delegates to Err
	Err    error     // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Text
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case msg != "" && e.Err != nil:
		msg = msg + ": " + e.Err.Error()
	case msg == "":
		msg = e.Kind.String()
	}
	if e.Prefix != "" {
		return string(e.Prefix) + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Component is the static prefix a package attaches to its errors.
//
// Example:
//
//	var errs = rdmerr.Component("pull")
//	return errs.Text(rdmerr.HeadDetached, "HEAD is not on a branch")
type Component string

// Text creates an error with a literal message.
func (c Component) Text(kind Kind, text string) error {
	return &Error{Prefix: c, Kind: kind, Text: text}
}

// Format creates an error with an interpolated message.
func (c Component) Format(kind Kind, format string, args ...any) error {
	return &Error{Prefix: c, Kind: kind, Text: fmt.Sprintf(format, args...)}
}

// Wrap creates an error whose message is delegated to err.
// Returns nil if err is nil.
func (c Component) Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Prefix: c, Kind: kind, Err: err}
}

// Wrapf creates an error with an interpolated message that also carries err.
func (c Component) Wrapf(kind Kind, err error, format string, args ...any) error {
	return &Error{Prefix: c, Kind: kind, Text: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether any error in err's chain is of the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// KindOf returns the Kind of the outermost structured error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
