package bazbom

import (
	"errors"
	"strings"
)

// Error is the bazbom error domain type.
//
// Errors coming from bazbom components should be able to be inspected as
// ([errors.As]) an *Error at some point in the error chain.
//
// Implementers of bazbom components should create an Error at the system
// boundary (e.g. a network call or a filesystem read) and intermediate
// layers should not wrap in another Error except to add additional
// [ErrorKind] information. That is to say, use [fmt.Errorf] with a "%w"
// verb in preference to creating a containing Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrConflict, ErrInternal, ErrInvalid, ErrPrecondition, ErrTransient, ErrPermanent:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
func (e *Error) Is(kind error) bool {
	switch kind {
	case ErrVersionDependent:
		return !errors.Is(e, ErrTransient) && !errors.Is(e, ErrPermanent)
	default:
	}
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors to be checked against.
//
// If an error is unsure which kind to use, ErrInternal should be used.
type ErrorKind string

// Defined error kinds. These back the §7 error taxonomy: ParseError and
// VersionUnparseable use ErrInvalid, NetworkError and RateLimited use
// ErrTransient, ToolMissing and ApplyFailure preconditions use
// ErrPrecondition, and anything session-fatal uses ErrPermanent.
var (
	ErrConflict     = ErrorKind("conflict")     // conflicting action
	ErrInternal     = ErrorKind("internal")     // non-specific internal error
	ErrInvalid      = ErrorKind("invalid")      // invalid input (manifest, advisory, version string)
	ErrPrecondition = ErrorKind("precondition") // some precondition unfulfilled
	ErrTransient    = ErrorKind("transient")    // may succeed on retry
	ErrPermanent    = ErrorKind("permanent")    // will never succeed

	// ErrVersionDependent should only be used for an [Is] comparison. It's
	// true for any error that's not marked as transient or permanent.
	ErrVersionDependent = ErrorKind("version dependent")

	// ErrCanceled marks a scan or transaction that was aborted by context
	// cancellation rather than by a component failure.
	ErrCanceled = ErrorKind("canceled")
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}
