package shortener

import "errors"

var (
	// ErrInvalidURL rejects destinations that do not parse as absolute URLs.
	ErrInvalidURL = errors.New("invalid destination URL")

	// ErrInvalidCode rejects custom codes outside [A-Za-z0-9_-]{3,10}.
	ErrInvalidCode = errors.New("invalid short code")

	// ErrInvalidStatus rejects status values other than active/inactive.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrCodeTaken is surfaced when a caller-supplied code is already occupied.
	ErrCodeTaken = errors.New("short code already taken")

	// ErrNotFound covers unknown, expired and foreign-owner links uniformly.
	// Redirect callers must not be able to tell those apart.
	ErrNotFound = errors.New("short link not found")

	// ErrAllocationExhausted means no free code was found even after length
	// escalation reached the maximum code length.
	ErrAllocationExhausted = errors.New("short code allocation exhausted")

	// ErrDuplicateCode is returned by Store.Create when the unique constraint
	// on short_code rejects the insert. The durable store is the final arbiter
	// under concurrent creation; the service converts this into a retry.
	ErrDuplicateCode = errors.New("duplicate short code")
)
