package formstack

import "errors"

var (
	// ErrTabNotFound is returned when an operation targets a tab that is no longer open.
	ErrTabNotFound = errors.New("formstack: tab not found")
	// ErrParentNotFound is returned by OpenChild when the parent tab is not open.
	ErrParentNotFound = errors.New("formstack: parent tab not found")
	// ErrCompletionFailed wraps errors and panics raised by a completion handler.
	ErrCompletionFailed = errors.New("formstack: completion handler failed")
)
