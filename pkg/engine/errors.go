package engine

import "errors"

var (
	// ErrParse marks tool output that could not be decoded.
	ErrParse = errors.New("parse error")
	// ErrProcess marks a tool that timed out, was missing or exited unexpectedly.
	ErrProcess = errors.New("process error")
	// ErrConfiguration marks an unknown scan category or invalid setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrDispatch marks a notification channel that failed to deliver.
	ErrDispatch = errors.New("dispatch error")

	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateJob      = errors.New("job already exists")
)
