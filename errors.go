package agentmesh

import (
	"github.com/kestrelsys/agentmesh/internal/coreerr"
)

// Error is the structured error returned by the fabric, registry and
// telemetry operations. The ring and wire packages return plain errors
// of their own (ring.ErrFull, ring.ErrEmpty, and wire's buffer-size
// errors, which telemetry.Deserialize passes through unchanged). Error
// is a thin alias over internal/coreerr.Error so
// that fabric, telemetry, optimize, and registry can all construct it
// without importing this root package (which imports them), while
// callers of this package still only ever see one Error type.
type Error = coreerr.Error

// Code categorizes the recoverable failure conditions this module can
// report.
type Code = coreerr.Code

// The six error conditions this module can report.
const (
	CodeQueueFull        = coreerr.CodeQueueFull
	CodeUnknownRecipient = coreerr.CodeUnknownRecipient
	CodeInvalidMessage   = coreerr.CodeInvalidMessage
	CodeHandlerFailure   = coreerr.CodeHandlerFailure
	CodeExecutorFailure  = coreerr.CodeExecutorFailure
	CodeShutdownRace     = coreerr.CodeShutdownRace
)

// NewError creates a structured Error.
func NewError(op string, code Code, msg string) *Error {
	return coreerr.New(op, code, msg)
}

// WrapError wraps an existing error with module context, preserving
// its Code if it is already an *Error.
func WrapError(op string, code Code, inner error) *Error {
	return coreerr.Wrap(op, code, inner)
}

// IsCode reports whether err is an *Error with the given Code.
func IsCode(err error, code Code) bool {
	return coreerr.IsCode(err, code)
}
