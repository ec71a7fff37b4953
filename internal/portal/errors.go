package portal

import "errors"

var (
	// ErrInvalidCredentials means the portal kept us on the login page after
	// all login attempts were exhausted.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited means the portal reported too many login attempts. It is
	// deliberately distinct from ErrInvalidCredentials so callers can apply a
	// longer backoff instead of burning remaining attempts.
	ErrRateLimited = errors.New("login rate limited")

	// ErrSessionExpired means a section navigation bounced back to the login
	// page. It is recoverable per section and never aborts the whole run.
	ErrSessionExpired = errors.New("session expired")

	// ErrReportNotAvailable means the monthly report landing page had no
	// resume/start control. Non-retryable; the report was likely already
	// filed this period.
	ErrReportNotAvailable = errors.New("monthly report not available")

	// ErrFormStageNotFound means an expected form stage marker or control
	// never appeared. Terminal for the form walk.
	ErrFormStageNotFound = errors.New("form stage not found")
)
