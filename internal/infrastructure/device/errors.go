package device

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// ConnectError wraps a failure to reach or authenticate against the device.
// Connect failures are always transient-retryable.
type ConnectError struct {
	Address string
	Err     error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	return fmt.Sprintf("device connect %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// CommandError is a device-side rejection or transport failure for a single
// command. Transient is derived from the failure class: timeouts and resets
// retry, duplicate/invalid/not-found do not.
type CommandError struct {
	Command   string
	Code      string
	Message   string
	Transient bool
}

// Error implements the error interface
func (e *CommandError) Error() string {
	return fmt.Sprintf("device command %s failed (%s): %s", e.Command, e.Code, e.Message)
}

// Command error codes
const (
	CodeTimeout      = "TIMEOUT"
	CodeConnReset    = "CONN_RESET"
	CodeDuplicate    = "DUPLICATE"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidParam = "INVALID_PARAM"
	CodeTrap         = "TRAP"
)

// IsTransient reports whether the error should be retried. Connect errors are
// always transient; command errors carry their own classification.
func IsTransient(err error) bool {
	var connErr *ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Transient
	}
	return false
}

// IsNotFound reports whether the device rejected the command because the
// target object does not exist. Compensation treats this as success.
func IsNotFound(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == CodeNotFound
}

// classifyTrap maps a device trap message to a command error. The device does
// not return structured codes, so classification keys off message content.
func classifyTrap(command, message string) *CommandError {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "already have") || strings.Contains(lower, "already exists") || strings.Contains(lower, "duplicate"):
		return &CommandError{Command: command, Code: CodeDuplicate, Message: message, Transient: false}
	case strings.Contains(lower, "no such item") || strings.Contains(lower, "not found"):
		return &CommandError{Command: command, Code: CodeNotFound, Message: message, Transient: false}
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "unknown parameter") || strings.Contains(lower, "syntax error"):
		return &CommandError{Command: command, Code: CodeInvalidParam, Message: message, Transient: false}
	default:
		// Unrecognized traps are treated as permanent: retrying a rejection
		// the device can reproduce deterministically cannot succeed.
		return &CommandError{Command: command, Code: CodeTrap, Message: message, Transient: false}
	}
}

// classifyTransport maps a transport-level failure to a command error
func classifyTransport(command string, err error) *CommandError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, os.ErrDeadlineExceeded) {
		return &CommandError{Command: command, Code: CodeTimeout, Message: err.Error(), Transient: true}
	}
	return &CommandError{Command: command, Code: CodeConnReset, Message: err.Error(), Transient: true}
}
