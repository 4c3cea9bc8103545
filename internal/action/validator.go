package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

// inputValidator wraps go-playground/validator with the lock's custom tags.
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name so messages match what callers sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return lock.ValidatePIN(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
		_, err := lock.ParseScheduleTime(fl.Field().String())
		return err == nil
	})

	return &inputValidator{v: v}
}

// Validate checks i against its struct tags and returns ErrInvalidInput
// carrying one human-readable message per failing field.
func (iv *inputValidator) Validate(i any) error {
	if err := iv.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "pin":
		return fmt.Sprintf("%s must be 1-%d digits", field, lock.MaxPINLength)
	case "schedule":
		return field + " must be a date or date-time"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// unmarshalInput decodes an action input object. Empty input and null are
// treated as {}.
func unmarshalInput(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	if err := json.Unmarshal(trimmed, dst); err != nil {
		var te *json.UnmarshalTypeError
		var se *json.SyntaxError
		switch {
		case errors.As(err, &te) && te.Field == "":
			return fmt.Errorf("%w: input must be an object", ErrInvalidInput)
		case errors.As(err, &te):
			return fmt.Errorf("%w: %s must be %s", ErrInvalidInput, te.Field, jsonKind(te.Type))
		case errors.As(err, &se):
			return fmt.Errorf("%w: malformed JSON at offset %d", ErrInvalidInput, se.Offset)
		case errors.Is(err, lock.ErrInvalidSlot):
			return fmt.Errorf("%w: userId must be an integer", ErrInvalidInput)
		default:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Bool:
		return "a boolean"
	default:
		return "a " + t.Kind().String()
	}
}

func decodeAs[T command](iv *inputValidator, raw json.RawMessage) (command, error) {
	var in T
	if err := unmarshalInput(raw, &in); err != nil {
		return nil, err
	}
	if err := iv.Validate(in); err != nil {
		return nil, err
	}
	return in, nil
}

// decode turns a named raw input into a validated command.
func (iv *inputValidator) decode(name string, raw json.RawMessage) (command, error) {
	switch name {
	case AddUser:
		cmd, err := decodeAs[AddUserInput](iv, raw)
		if err != nil {
			return nil, err
		}
		if _, err := cmd.(AddUserInput).User(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return cmd, nil
	case RemoveUser:
		return decodeAs[RemoveUserInput](iv, raw)
	case SetPinCode:
		return decodeAs[SetPinCodeInput](iv, raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}
