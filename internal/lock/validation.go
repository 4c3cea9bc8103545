package lock

import (
	"fmt"
	"regexp"
)

var pinRegex = regexp.MustCompile(`^[0-9]+$`)

// ValidateSlot checks that a slot is within MinSlot..MaxSlot.
func ValidateSlot(slot SlotID) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidSlot, slot, MinSlot, MaxSlot)
	}
	return nil
}

// ValidatePIN checks that a PIN is 1..MaxPINLength decimal digits.
func ValidatePIN(pin string) error {
	if pin == "" {
		return fmt.Errorf("%w: pin is required", ErrInvalidPIN)
	}
	if len(pin) > MaxPINLength {
		return fmt.Errorf("%w: pin exceeds %d digits", ErrInvalidPIN, MaxPINLength)
	}
	if !pinRegex.MatchString(pin) {
		return fmt.Errorf("%w: pin must contain digits only", ErrInvalidPIN)
	}
	return nil
}

// ValidateStatus accepts the zero value (unset) or a known status.
func ValidateStatus(s UserStatus) error {
	if s == "" || s.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
