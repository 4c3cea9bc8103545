package bridge

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
)

// ActionMessage is an action request received over MQTT.
// Topic: graylogic/lock/{thing}/action/{name}
type ActionMessage struct {
	// ID is chosen by the caller and echoed as command_id in every ack.
	ID string `json:"id"`

	// Input is the action input object. Missing input is treated as {}.
	Input json.RawMessage `json:"input,omitempty"`

	// Source names the caller, for logging only.
	Source string `json:"source,omitempty"`
}

// AckStatus is the acknowledgement state of an action request.
type AckStatus string

const (
	// AckAccepted indicates the request was validated and queued.
	AckAccepted AckStatus = "accepted"

	// AckCompleted indicates the action was applied to the lock.
	AckCompleted AckStatus = "completed"

	// AckFailed indicates the request was rejected or the action failed.
	AckFailed AckStatus = "failed"
)

// AckMessage is published in reply to an ActionMessage.
// Topic: graylogic/lock/{thing}/ack/{name}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	ActionID  string    `json:"action_id,omitempty"`
	Action    string    `json:"action"`
	Status    AckStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed requests.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newAck builds an ack for the request cmd on action name.
func newAck(cmd ActionMessage, name, actionID string, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		ActionID:  actionID,
		Action:    name,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// newAckError builds a failed ack.
func newAckError(cmd ActionMessage, name, actionID, code, message string) AckMessage {
	ack := newAck(cmd, name, actionID, AckFailed)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// resultAck builds the final ack for a finished action.
func resultAck(cmd ActionMessage, a action.Action) AckMessage {
	switch a.Status {
	case action.StatusCompleted:
		return newAck(cmd, a.Name, a.ID, AckCompleted)
	case action.StatusCancelled:
		return newAckError(cmd, a.Name, a.ID, ErrCodeCancelled, "action cancelled")
	default:
		return newAckError(cmd, a.Name, a.ID, ErrCodeActionFailed, a.Error)
	}
}

// errorCode maps a dispatcher rejection to an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, action.ErrUnknownAction):
		return ErrCodeUnknownAction
	case errors.Is(err, action.ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, action.ErrQueueFull):
		return ErrCodeQueueFull
	default:
		return ErrCodeUnavailable
	}
}
