package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailed indicates the netlist text is malformed
	ParseFailed ErrorCode = "PARSE_ERROR"
	// TopCellNotFound indicates the requested top cell is not defined in the netlist
	TopCellNotFound ErrorCode = "TOP_CELL_NOT_FOUND"
	// PatternInvalid indicates a regular expression failed to compile
	PatternInvalid ErrorCode = "PATTERN_INVALID"
	// ExpansionLimit indicates a bus pattern expands to more names than allowed
	ExpansionLimit ErrorCode = "EXPANSION_LIMIT"
	// StoreClosed indicates a query against a released net store
	StoreClosed ErrorCode = "STORE_CLOSED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditInput suggests changing the offending input
	EditInput FixActionType = "edit-input"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error represents an nqs error with code, message and optional source line.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Line    int         `json:"line,omitempty"` // 1-based source line, 0 when not applicable
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// ParseError creates a fatal netlist parse error at the given line.
func ParseError(line int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    ParseFailed,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
	}
}

// PatternError wraps a regular expression compile failure.
func PatternError(pattern string, cause error) *Error {
	return &Error{
		Code:    PatternInvalid,
		Message: fmt.Sprintf("invalid pattern %q", pattern),
		Details: map[string]string{"pattern": pattern},
		cause:   cause,
	}
}

// ExpansionLimitError reports a bus pattern whose expansion exceeds limit.
func ExpansionLimitError(pattern string, limit int) *Error {
	return &Error{
		Code:    ExpansionLimit,
		Message: fmt.Sprintf("bus expansion exceeded limit (%d) for pattern '%s'", limit, pattern),
		Details: map[string]interface{}{"pattern": pattern, "limit": limit},
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	TopCellNotFound: {
		{
			Type:        RunCommand,
			Command:     "nqs templates",
			Description: "List the templates defined in the netlist",
		},
	},
	PatternInvalid: {
		{
			Type:        EditInput,
			Description: "Fix the regular expression syntax or drop the regex flag",
		},
	},
	ExpansionLimit: {
		{
			Type:        EditInput,
			Description: "Narrow the bus range or raise resolver.maxBusExpansion",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
