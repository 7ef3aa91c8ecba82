package billing

import "errors"

var (
	// ErrNoCredential is returned when no admin key is configured.
	ErrNoCredential = errors.New("billing: no admin credential configured")

	// ErrRateLimited is returned when every attempt was rate limited.
	ErrRateLimited = errors.New("billing: rate limited")

	// ErrUnexpectedStatus is returned for any non-success, non-429 status.
	ErrUnexpectedStatus = errors.New("billing: unexpected status")

	// ErrMalformedResponse is returned when a page does not match its schema.
	ErrMalformedResponse = errors.New("billing: malformed response")
)
