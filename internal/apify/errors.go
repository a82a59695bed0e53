package apify

import (
	"fmt"
	"time"
)

// AuthError means the provider rejected our token (401/403). Fatal, never
// retried.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("apify: authentication rejected (status %d), check APIFY_TOKEN", e.StatusCode)
}

// NotFoundError means the actor or endpoint does not exist (404). This is a
// configuration problem, not a transient failure.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("apify: %s not found, check APIFY_ACTOR_ID", e.Resource)
}

// BadRequestError carries the provider's validation payload for a 400
// response.
type BadRequestError struct {
	Payload string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("apify: provider rejected request: %s", e.Payload)
}

// TransientError covers network failures and unexpected status codes. It
// triggers the async fallback path exactly once.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("apify: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RunFailedError means the async job reached a failed terminal state.
type RunFailedError struct {
	Status  string
	Message string
}

func (e *RunFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apify: run ended %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("apify: run ended %s", e.Status)
}

// RunTimeoutError means the poll loop exceeded its hard timeout before the
// job reached a terminal state.
type RunTimeoutError struct {
	Timeout time.Duration
}

func (e *RunTimeoutError) Error() string {
	return fmt.Sprintf("apify: run did not finish within %v", e.Timeout)
}
