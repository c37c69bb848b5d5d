package sale

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures seen by the sync subsystem.
type ErrorCode string

const (
	// ErrCodeStorage indicates a durable read or write failed. Fatal to the
	// enclosing operation (an enqueue or a whole sync run).
	ErrCodeStorage ErrorCode = "STORAGE"

	// ErrCodeNetwork indicates the remote call could not complete
	// (timeout, connection refused, 5xx without a body). The intent stays
	// pending and is retried on the next trigger.
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeRemoteRejected indicates the remote call completed but
	// reported success=false. Handled like ErrCodeNetwork.
	ErrCodeRemoteRejected ErrorCode = "REMOTE_REJECTED"

	// ErrCodeInvalidSale indicates sale data failed validation at enqueue.
	ErrCodeInvalidSale ErrorCode = "INVALID_SALE"
)

// Error is the typed error used across store, engine, remote and checkout.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// LocalID identifies the affected intent, if any.
	LocalID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.LocalID != "" {
		msg = fmt.Sprintf("%s (local_id=%s)", msg, e.LocalID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// StorageError wraps a durable storage failure.
func StorageError(op string, err error) *Error {
	return &Error{Code: ErrCodeStorage, Message: op, Err: err}
}

// NetworkError wraps a transport failure of a remote call.
func NetworkError(op string, err error) *Error {
	return &Error{Code: ErrCodeNetwork, Message: op, Err: err}
}

// RemoteRejection reports a remote call that completed with success=false.
func RemoteRejection(localID, message string) *Error {
	if message == "" {
		message = "remote reported failure"
	}
	return &Error{Code: ErrCodeRemoteRejected, Message: message, LocalID: localID}
}

// InvalidSale reports sale data that cannot become an intent.
func InvalidSale(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidSale, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsStorageError reports whether err is a storage failure.
func IsStorageError(err error) bool {
	return CodeOf(err) == ErrCodeStorage
}

// IsNetworkError reports whether err is a remote transport failure.
func IsNetworkError(err error) bool {
	return CodeOf(err) == ErrCodeNetwork
}

// IsRemoteRejection reports whether err is a remote success=false result.
func IsRemoteRejection(err error) bool {
	return CodeOf(err) == ErrCodeRemoteRejected
}

// IsInvalidSale reports whether err is a validation failure.
func IsInvalidSale(err error) bool {
	return CodeOf(err) == ErrCodeInvalidSale
}
