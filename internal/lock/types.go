package lock

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Slot limits. A lock stores at most one user per slot, so the slot range
// also bounds the registry size.
const (
	MinSlot SlotID = 0
	MaxSlot SlotID = 9

	// MaxUsers is the number of PIN-code slots the lock supports.
	MaxUsers = int(MaxSlot-MinSlot) + 1

	// MaxPINLength is the longest PIN the keypad accepts.
	MaxPINLength = 16

	// MaxUserNameLength is the longest user name, in characters.
	MaxUserNameLength = 64
)

// SlotID identifies a PIN-code storage position on the lock.
//
// The integer is the canonical form. On the wire a slot may arrive as a JSON
// number (3, 3.0) or as a numeric string ("3"); both are converted once here
// and compared as integers everywhere else.
type SlotID int

// UnmarshalJSON accepts integral JSON numbers and numeric strings.
func (s *SlotID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v is not an integer", ErrInvalidSlot, f)
		}
		*s = SlotID(f)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSlot, data)
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", ErrInvalidSlot, str)
	}
	*s = SlotID(n)
	return nil
}

// Valid reports whether the slot is within MinSlot..MaxSlot.
func (s SlotID) Valid() bool {
	return s >= MinSlot && s <= MaxSlot
}

// UserStatus is whether a user's PIN is accepted by the keypad.
type UserStatus string

// User statuses. The zero value means the status was never set.
const (
	StatusEnabled  UserStatus = "Enabled"
	StatusDisabled UserStatus = "Disabled"
)

// AllUserStatuses returns the statuses a host may set.
func AllUserStatuses() []UserStatus {
	return []UserStatus{StatusDisabled, StatusEnabled}
}

// Valid reports whether the status is one of AllUserStatuses.
func (s UserStatus) Valid() bool {
	return s == StatusEnabled || s == StatusDisabled
}

// User is an authorised keypad user stored in one slot.
type User struct {
	SlotID    SlotID     `json:"userId"`
	Name      *string    `json:"userName,omitempty"`
	PIN       string     `json:"pin"`
	Status    UserStatus `json:"status,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Clone returns an independent copy of the user.
func (u User) Clone() User {
	cpy := u
	if u.Name != nil {
		n := *u.Name
		cpy.Name = &n
	}
	if u.StartDate != nil {
		t := *u.StartDate
		cpy.StartDate = &t
	}
	if u.EndDate != nil {
		t := *u.EndDate
		cpy.EndDate = &t
	}
	return cpy
}

// scheduleLayouts are the timestamp forms accepted for startDate/endDate.
// Hosts commonly send datetime-local values without a zone; those are UTC.
var scheduleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// SchedulePattern is the JSON Schema pattern matching the shapes of
// scheduleLayouts. Fractional seconds are accepted after any seconds field.
// It cannot rule out days past the end of a month, which
// ParseScheduleTime rejects.
const SchedulePattern = `^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])(` +
	`T` + clockHM +
	`|[T ]` + clockHM + `:[0-5]\d(\.\d+)?` +
	`|T` + clockHM + `:[0-5]\d(\.\d+)?(Z|[+-]` + clockHM + `)` +
	`)?$`

const clockHM = `([01]\d|2[0-3]):[0-5]\d`

// ParseScheduleTime parses a startDate/endDate string.
func ParseScheduleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrInvalidSchedule, s)
}
