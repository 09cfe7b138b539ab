package apperr

import "errors"

// Code classifies a failure by how the update cycle must react to it.
type Code string

const (
	// Recoverable: logged, retried on a later tick.
	CodeTransport Code = "transport"

	// Sticky: written to the fatal slot, disables the live phase.
	CodeIdentityConflict Code = "identity_conflict"
	CodeVersionConflict  Code = "version_conflict"
	CodeDataIntegrity    Code = "data_integrity"

	// Expected while the game is still loading; never logged as an error.
	CodeUnavailable Code = "unavailable"
)

// Fatal reports whether errors with this code must disable the live phase.
func (c Code) Fatal() bool {
	switch c {
	case CodeIdentityConflict, CodeVersionConflict, CodeDataIntegrity:
		return true
	default:
		return false
	}
}

// Error is the client's error type with a machine-readable code.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MetadataOf returns the metadata of the first *Error in err's chain.
func MetadataOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}

// IsFatal reports whether err must be written to the sticky fatal slot.
// Errors without a code are treated as fatal so that unexpected failures are
// surfaced instead of silently retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	code := CodeOf(err)
	if code == "" {
		return true
	}
	return code.Fatal()
}

func IsUnavailable(err error) bool { return CodeOf(err) == CodeUnavailable }

func IsTransport(err error) bool { return CodeOf(err) == CodeTransport }
