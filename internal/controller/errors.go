package controller

import "errors"

var (
	// ErrStartup wraps failures during Start. Startup errors are fatal;
	// once running, errors are logged and the controller keeps going.
	ErrStartup = errors.New("controller: startup failed")

	// ErrNotStarted is returned when an operation needs a running controller.
	ErrNotStarted = errors.New("controller: not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("controller: already started")

	// ErrAlreadyStopped is returned when Start is called on a controller
	// that has been stopped. A controller runs at most once.
	ErrAlreadyStopped = errors.New("controller: already stopped")
)
