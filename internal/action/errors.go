package action

import "errors"

// Domain errors for the action package.
var (
	// ErrUnknownAction is returned for an action name the lock does not support.
	ErrUnknownAction = errors.New("action: unknown action")

	// ErrInvalidInput is returned when an action input fails decoding or validation.
	ErrInvalidInput = errors.New("action: invalid input")

	// ErrActionNotFound is returned when no action with the given name and id is in history.
	ErrActionNotFound = errors.New("action: not found")

	// ErrActionInProgress is returned when cancelling an action the device is applying.
	ErrActionInProgress = errors.New("action: in progress")

	// ErrQueueFull is returned when the action queue has no free capacity.
	ErrQueueFull = errors.New("action: queue full")

	// ErrDispatcherClosed is returned when submitting to a closed dispatcher.
	ErrDispatcherClosed = errors.New("action: dispatcher closed")
)
