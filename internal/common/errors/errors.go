// Package errors provides standardized error handling for the whitelist bot.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeProfileNotFound    ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeProfileLookupError ErrorCode = "PROFILE_LOOKUP_ERROR"

	ErrCodeReceiveTimeout ErrorCode = "RECEIVE_TIMEOUT"

	ErrCodeSnapshotReadFailed  ErrorCode = "SNAPSHOT_READ_FAILED"
	ErrCodeSnapshotWriteFailed ErrorCode = "SNAPSHOT_WRITE_FAILED"
	ErrCodeSnapshotInvalid     ErrorCode = "SNAPSHOT_INVALID"

	ErrCodeGatewaySendFailed ErrorCode = "GATEWAY_SEND_FAILED"

	ErrCodeCommandInvalid ErrorCode = "COMMAND_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewProfileNotFoundError creates a non-retryable lookup miss.
func NewProfileNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileNotFound,
		Message:   "Profile not found",
		Details:   fmt.Sprintf("name: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileLookupError creates a retryable lookup transport error.
func NewProfileLookupError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileLookupError,
		Message:   "Profile lookup request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReceiveTimeoutError creates a non-retryable interview timeout error.
func NewReceiveTimeoutError(applicantID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReceiveTimeout,
		Message:   "Timed out waiting for applicant message",
		Details:   fmt.Sprintf("applicantId: %s", applicantID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotReadFailedError creates a retryable snapshot read error.
func NewSnapshotReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotReadFailed,
		Message:   "Whitelist snapshot read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotWriteFailedError creates a retryable snapshot write error.
func NewSnapshotWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotWriteFailed,
		Message:   "Whitelist snapshot write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotInvalidError creates a non-retryable snapshot schema error.
func NewSnapshotInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotInvalid,
		Message:   "Whitelist snapshot failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGatewaySendFailedError creates a retryable chat delivery error.
func NewGatewaySendFailedError(channelID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGatewaySendFailed,
		Message:   "Chat message delivery failed",
		Details:   fmt.Sprintf("channelId: %s, error: %s", channelID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCommandInvalidError creates a non-retryable staff command error.
func NewCommandInvalidError(usage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCommandInvalid,
		Message:   "Invalid command arguments",
		Details:   usage,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}
