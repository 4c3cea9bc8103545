package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrInvalidTopic is returned for messages on a topic the bridge does
	// not serve.
	ErrInvalidTopic = errors.New("bridge: invalid topic")

	// ErrInvalidPayload is returned when an action message is not valid JSON.
	ErrInvalidPayload = errors.New("bridge: invalid payload")
)

// Error codes carried in failed acknowledgements.
const (
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeUnknownAction  = "UNKNOWN_ACTION"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeQueueFull      = "QUEUE_FULL"
	ErrCodeUnavailable    = "UNAVAILABLE"
	ErrCodeActionFailed   = "ACTION_FAILED"
	ErrCodeCancelled      = "CANCELLED"
)
