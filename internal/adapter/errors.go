package adapter

import "errors"

var (
	// ErrNotStarted is returned when a method is called before Start.
	ErrNotStarted = errors.New("adapter not started")

	// ErrCommandFailed is returned when the coordinator rejects a request.
	ErrCommandFailed = errors.New("coordinator command failed")

	// ErrTimeout is returned when a device does not answer in time.
	ErrTimeout = errors.New("request timed out")
)
