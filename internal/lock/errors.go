package lock

import "errors"

// Domain errors for the lock package.
//
// Operations on an empty slot never return an error; only malformed input does.
var (
	// ErrInvalidSlot is returned when a slot is outside 0-9.
	ErrInvalidSlot = errors.New("lock: invalid slot")

	// ErrInvalidPIN is returned when a PIN is not 1-16 decimal digits.
	ErrInvalidPIN = errors.New("lock: invalid pin")

	// ErrInvalidStatus is returned when a user status is not Enabled or Disabled.
	ErrInvalidStatus = errors.New("lock: invalid status")

	// ErrInvalidSchedule is returned when a start/end date cannot be parsed.
	ErrInvalidSchedule = errors.New("lock: invalid schedule")

	// ErrUnknownProperty is returned for a property name the device does not declare.
	ErrUnknownProperty = errors.New("lock: unknown property")

	// ErrReadOnlyProperty is returned when a host tries to write a read-only property.
	ErrReadOnlyProperty = errors.New("lock: property is read-only")

	// ErrInvalidPropertyValue is returned when a property write has the wrong type.
	ErrInvalidPropertyValue = errors.New("lock: invalid property value")
)
