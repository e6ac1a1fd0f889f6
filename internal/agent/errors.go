package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyConversation is returned when Run is given no messages.
var ErrEmptyConversation = errors.New("conversation is empty")

// ReasoningError wraps a failure of the reasoning service.
type ReasoningError struct {
	Activation int
	Err        error
}

func (e *ReasoningError) Error() string {
	return fmt.Sprintf("reasoning service failed on activation %d: %v", e.Activation, e.Err)
}

func (e *ReasoningError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a tool failure that the platform did not turn
// into a tool result.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (call %s) failed: %v", e.Tool, e.CallID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
