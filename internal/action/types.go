package action

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

// Action names.
const (
	AddUser    = "addUser"
	RemoveUser = "removeUser"
	SetPinCode = "setPinCode"
)

// Names returns the supported action names in a stable order.
func Names() []string {
	return []string{AddUser, RemoveUser, SetPinCode}
}

// Status is the lifecycle state of an action.
type Status string

// Action statuses.
const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Finished reports whether the action will not change status again.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Request asks the dispatcher to run one action.
type Request struct {
	Name  string          // Action name (AddUser, RemoveUser or SetPinCode)
	Input json.RawMessage // Action input object; empty means {}
	// Source identifies the submitting host for logs and metrics (e.g. "http").
	Source string
}

// Action is a recorded action request.
type Action struct {
	ID            string
	Name          string
	Input         json.RawMessage
	Source        string
	Status        Status
	Error         string
	TimeRequested time.Time
	TimeCompleted *time.Time
}

// Href returns the action's resource path on the device host.
func (a Action) Href() string {
	return "/actions/" + a.Name + "/" + a.ID
}

// Clone returns an independent copy of the action.
func (a Action) Clone() Action {
	cpy := a
	if a.Input != nil {
		cpy.Input = append(json.RawMessage(nil), a.Input...)
	}
	if a.TimeCompleted != nil {
		t := *a.TimeCompleted
		cpy.TimeCompleted = &t
	}
	return cpy
}

// Performer applies lock operations. *lock.Device implements it.
type Performer interface {
	AddUser(user lock.User) error
	RemoveUser(slot lock.SlotID) error
	SetPinCode(slot lock.SlotID, pin string) error
}

// command is a decoded, validated action input.
type command interface {
	apply(p Performer) error
}

// AddUserInput is the input of the addUser action.
type AddUserInput struct {
	UserID    *lock.SlotID    `json:"userId" validate:"required,min=0,max=9"`
	PIN       string          `json:"pin" validate:"required,pin"`
	UserName  *string         `json:"userName,omitempty" validate:"omitempty,max=64"`
	Status    lock.UserStatus `json:"status,omitempty" validate:"omitempty,oneof=Disabled Enabled"`
	StartDate string          `json:"startDate,omitempty" validate:"omitempty,schedule"`
	EndDate   string          `json:"endDate,omitempty" validate:"omitempty,schedule"`
}

// User converts the input into the record stored on the lock.
func (in AddUserInput) User() (lock.User, error) {
	u := lock.User{
		Name:   in.UserName,
		PIN:    in.PIN,
		Status: in.Status,
	}
	if in.UserID != nil {
		u.SlotID = *in.UserID
	}
	if in.StartDate != "" {
		t, err := lock.ParseScheduleTime(in.StartDate)
		if err != nil {
			return lock.User{}, err
		}
		u.StartDate = &t
	}
	if in.EndDate != "" {
		t, err := lock.ParseScheduleTime(in.EndDate)
		if err != nil {
			return lock.User{}, err
		}
		u.EndDate = &t
	}
	if u.StartDate != nil && u.EndDate != nil && u.EndDate.Before(*u.StartDate) {
		return lock.User{}, fmt.Errorf("%w: endDate is before startDate", lock.ErrInvalidSchedule)
	}
	return u, nil
}

func (in AddUserInput) apply(p Performer) error {
	u, err := in.User()
	if err != nil {
		return err
	}
	return p.AddUser(u)
}

// RemoveUserInput is the input of the removeUser action. A missing userId
// removes nothing.
type RemoveUserInput struct {
	UserID *lock.SlotID `json:"userId,omitempty" validate:"omitempty,min=0,max=9"`
}

func (in RemoveUserInput) apply(p Performer) error {
	if in.UserID == nil {
		return nil
	}
	return p.RemoveUser(*in.UserID)
}

// SetPinCodeInput is the input of the setPinCode action.
type SetPinCodeInput struct {
	UserID *lock.SlotID `json:"userId" validate:"required,min=0,max=9"`
	PIN    string       `json:"pin" validate:"required,pin"`
}

func (in SetPinCodeInput) apply(p Performer) error {
	return p.SetPinCode(*in.UserID, in.PIN)
}
