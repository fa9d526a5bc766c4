package device

import "errors"

// Domain errors for the device package, checked with errors.Is().
var (
	// ErrDeviceNotFound is returned when an address does not resolve to a
	// stored device.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose IEEE
	// address is already stored.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrGroupNotFound is returned when a group id does not exist.
	ErrGroupNotFound = errors.New("device: group not found")

	// ErrGroupExists is returned when creating a group whose id is
	// already stored.
	ErrGroupExists = errors.New("device: group already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidInterviewState is returned when an interview state is not recognised.
	ErrInvalidInterviewState = errors.New("device: invalid interview state")
)
