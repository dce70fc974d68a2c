// Package errkind defines the error taxonomy shared across the monitoring
// and ingest pipeline. Callers classify failures with errors.Is against the
// sentinels below and wrap them with fmt.Errorf("...: %w", ...).
package errkind

import "errors"

var (
	// ErrValidation marks malformed input: empty URL, unknown topic, bad
	// score range.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown article, group, or keyword.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate insert attempted without conflict
	// handling.
	ErrConflict = errors.New("conflict")

	// ErrRateLimited marks an exhausted provider daily quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrProvider marks an upstream HTTP, LLM, or scrape failure.
	ErrProvider = errors.New("provider error")

	// ErrParse marks an LLM response that did not conform to the expected
	// shape.
	ErrParse = errors.New("parse error")

	// ErrTimeout marks a deadline exceeded on an external call.
	ErrTimeout = errors.New("timeout")

	// ErrVector marks a vector store failure. Never fatal to the enclosing
	// operation.
	ErrVector = errors.New("vector store error")

	// ErrCache marks an unavailable analysis cache; callers degrade to
	// cache-miss behavior.
	ErrCache = errors.New("cache error")

	// ErrNoContent marks an article with no text, summary, or title to
	// embed.
	ErrNoContent = errors.New("no content")

	// ErrInternal marks an unclassified failure.
	ErrInternal = errors.New("internal error")
)
