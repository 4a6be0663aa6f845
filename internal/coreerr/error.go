// Package coreerr provides the structured error type shared by every
// component of the agent cooperation core.
package coreerr

import (
	"errors"
	"fmt"
)

// Code categorizes the recoverable failure conditions the core can
// report. All of them are recovered locally; none propagate as aborts.
type Code string

const (
	// CodeQueueFull indicates a ring buffer could not accept an element.
	CodeQueueFull Code = "queue full"
	// CodeUnknownRecipient indicates a send targeted an unregistered agent.
	CodeUnknownRecipient Code = "unknown recipient"
	// CodeInvalidMessage indicates a header/payload constraint was violated.
	CodeInvalidMessage Code = "invalid message"
	// CodeHandlerFailure indicates a registered handler returned false.
	CodeHandlerFailure Code = "handler failure"
	// CodeExecutorFailure indicates a host executor reported failure.
	CodeExecutorFailure Code = "executor failure"
	// CodeShutdownRace indicates an operation was issued after Stop.
	CodeShutdownRace Code = "shutdown race"
)

// Error is a structured error carrying the failing operation, a
// closed error category, and an optional wrapped cause.
type Error struct {
	Op    string // operation that failed, e.g. "fabric.Send"
	Code  Code
	Msg   string
	Inner error
}

// New creates a structured Error.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// Wrap wraps an existing error with core context, preserving its code
// if it is already a *Error.
func Wrap(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	msg := inner.Error()
	var ie *Error
	if errors.As(inner, &ie) {
		code = ie.Code
	}
	return &Error{Op: op, Code: code, Msg: msg, Inner: inner}
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("agentmesh: %s: %s (%s)", e.Op, e.Msg, e.Code)
	}
	return fmt.Sprintf("agentmesh: %s (%s)", e.Msg, e.Code)
}

// Unwrap supports errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target shares this error's Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// IsCode reports whether err is a *Error with the given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
