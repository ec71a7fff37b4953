package browser

import "errors"

// Sentinel errors for wait primitives. All of these are advisory: a timed-out
// wait means the page did not reach the expected state in time, and the caller
// decides whether to retry, continue, or abandon the stage.
var (
	// ErrNavigationTimeout means the page did not reach a quiescent state
	// within the navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrElementNotFound means a selector did not match a visible element
	// within the wait timeout.
	ErrElementNotFound = errors.New("element not found")

	// ErrConditionTimeout means a polled page condition never became true
	// within the wait timeout.
	ErrConditionTimeout = errors.New("condition timeout")
)
