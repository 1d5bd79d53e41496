package geofence

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionMissing is returned when arming without foreground location access.
	ErrPermissionMissing = errors.New("location permission missing")
	// ErrRegistrationFailed matches any RegistrationError.
	ErrRegistrationFailed = errors.New("geofence registration failed")
)

// RegistrationError wraps a monitoring service failure during Arm.
type RegistrationError struct {
	Cause error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrRegistrationFailed, e.Cause)
}

func (e *RegistrationError) Unwrap() error {
	return e.Cause
}

// Is reports ErrRegistrationFailed as a match.
func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistrationFailed
}

// MalformedEventError describes a delivery that could not be turned into an event.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err == nil {
		return "malformed event: " + e.Reason
	}
	return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
