package engine

import "fmt"

// BestEffortError reports a failed best-effort step.
//
// It is delivered to the handler set with WithBestEffortErrorHandler and is
// never returned from RunSync.
type BestEffortError struct {
	// Step is the name of the failed step.
	Step string

	// LocalID identifies the intent the step ran for.
	LocalID string

	// RemoteID is the backend id of the confirmed sale.
	RemoteID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BestEffortError) Error() string {
	return fmt.Sprintf("best-effort step %s failed (local_id=%s, remote_id=%s): %v",
		e.Step, e.LocalID, e.RemoteID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BestEffortError) Unwrap() error {
	return e.Err
}

// SkipReason explains why a run did nothing.
type SkipReason string

const (
	// SkipAlreadyRunning means another run held the single-flight guard.
	SkipAlreadyRunning SkipReason = "already_running"

	// SkipOffline means the status source reported no connectivity.
	SkipOffline SkipReason = "offline"
)
