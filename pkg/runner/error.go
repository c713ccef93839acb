package runner

import (
	"fmt"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// ErrorLabelNotFound: jump, if or choice target missing from the label table
	ErrorLabelNotFound ErrorType = "LABEL_NOT_FOUND"
	// ErrorChoiceOutOfRange: SelectChoice index outside the pending options
	ErrorChoiceOutOfRange ErrorType = "CHOICE_OUT_OF_RANGE"
	// ErrorNotAwaitingChoice: SelectChoice while no choice is pending
	ErrorNotAwaitingChoice ErrorType = "NOT_AWAITING_CHOICE"
	// ErrorScriptLoadFailed: script source could not be read
	ErrorScriptLoadFailed ErrorType = "SCRIPT_LOAD_FAILED"
)

// RuntimeError represents an error reported by the runner.
// No runtime error stops execution; the runner always stays usable.
type RuntimeError struct {
	Type    ErrorType
	Message string
	PC      int   // Instruction index, -1 if not applicable
	Line    int   // Source line, -1 if unknown
	Err     error // Underlying cause, if any
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error should stop execution. It is always false.
func (e *RuntimeError) IsFatal() bool {
	return false
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		PC:      -1,
		Line:    -1,
	}
}

// NewLabelNotFoundError creates a label not found error.
func NewLabelNotFoundError(label string, pc, line int) *RuntimeError {
	e := NewRuntimeError(ErrorLabelNotFound, fmt.Sprintf("label not found: %s", label))
	e.PC = pc
	e.Line = line
	return e
}

// NewChoiceOutOfRangeError creates a choice index error.
func NewChoiceOutOfRangeError(index, count int) *RuntimeError {
	return NewRuntimeError(ErrorChoiceOutOfRange, fmt.Sprintf("choice %d out of range (%d options)", index, count))
}

// NewNotAwaitingChoiceError creates an error for a selection with no pending choice.
func NewNotAwaitingChoiceError() *RuntimeError {
	return NewRuntimeError(ErrorNotAwaitingChoice, "no choice is pending")
}

// NewScriptLoadError creates a load failure error wrapping err.
func NewScriptLoadError(name string, err error) *RuntimeError {
	e := NewRuntimeError(ErrorScriptLoadFailed, fmt.Sprintf("failed to load script %s", name))
	e.Err = err
	return e
}
