package workflow

import "fmt"

// ErrorCode classifies engine and parser failures.
type ErrorCode string

// Structural parse error codes. These are fatal before a run starts: no
// partial workflow is ever returned alongside one.
const (
	ErrParseNoNodes              ErrorCode = "PARSE_NO_NODES"
	ErrParseMissingTrueTarget    ErrorCode = "PARSE_MISSING_TRUE_TARGET"
	ErrParseUnknownReference     ErrorCode = "PARSE_UNKNOWN_REFERENCE"
	ErrParseIllegalBackReference ErrorCode = "PARSE_ILLEGAL_BACK_REFERENCE"
)

// Run-time error codes. These are fatal to the current run only: the engine
// captures them into the run record and never re-throws.
const (
	ErrHandlerNotRegistered ErrorCode = "HANDLER_NOT_REGISTERED"
	ErrHandlerFailed        ErrorCode = "HANDLER_FAILED"
	ErrInvalidCondition     ErrorCode = "INVALID_CONDITION"
	ErrRunawayGuard         ErrorCode = "RUNAWAY_GUARD"
)

// Error is a structured error with a code, message, and optional node
// context and cause.
type Error struct {
	Code    ErrorCode
	Message string
	NodeID  string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.NodeID != "" {
		msg = fmt.Sprintf("node %s: %s", e.NodeID, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches the offending node ID.
func (e *Error) WithNode(nodeID string) *Error {
	e.NodeID = nodeID
	return e
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error, or "" when the error
// is not a workflow *Error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsParseError reports whether err carries a structural parse error code.
func IsParseError(err error) bool {
	switch GetErrorCode(err) {
	case ErrParseNoNodes, ErrParseMissingTrueTarget,
		ErrParseUnknownReference, ErrParseIllegalBackReference:
		return true
	}
	return false
}
