package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

func TestDecode_AddUserFullInput(t *testing.T) {
	iv := newInputValidator()
	raw := json.RawMessage(`{
		"userId": 2,
		"pin": "0042",
		"userName": "Alice",
		"status": "Enabled",
		"startDate": "2026-01-01T08:00",
		"endDate": "2026-12-31"
	}`)

	cmd, err := iv.decode(AddUser, raw)
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	in, ok := cmd.(AddUserInput)
	if !ok {
		t.Fatalf("decode() = %T, want AddUserInput", cmd)
	}

	u, err := in.User()
	if err != nil {
		t.Fatalf("User() error = %v", err)
	}
	if u.SlotID != 2 || u.PIN != "0042" || u.Name == nil || *u.Name != "Alice" || u.Status != lock.StatusEnabled {
		t.Errorf("User() = %+v", u)
	}
	if u.StartDate == nil || u.StartDate.Hour() != 8 {
		t.Errorf("StartDate = %v", u.StartDate)
	}
	if u.EndDate == nil || u.EndDate.Month() != 12 {
		t.Errorf("EndDate = %v", u.EndDate)
	}
}

func TestDecode_SlotZeroSatisfiesRequired(t *testing.T) {
	iv := newInputValidator()
	if _, err := iv.decode(SetPinCode, json.RawMessage(`{"userId": 0, "pin": "7"}`)); err != nil {
		t.Errorf("decode() error = %v", err)
	}
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	iv := newInputValidator()
	if _, err := iv.decode(RemoveUser, json.RawMessage(`{"userId": 1, "reason": "moved out"}`)); err != nil {
		t.Errorf("decode() error = %v", err)
	}
}

func TestDescriptions(t *testing.T) {
	descs := Descriptions()
	for _, name := range Names() {
		md, ok := descs[name]
		if !ok {
			t.Errorf("missing metadata for %s", name)
			continue
		}
		if md.Title == "" || md.Input["type"] != "object" {
			t.Errorf("%s metadata = %+v", name, md)
		}
	}

	if _, ok := descs[RemoveUser].Input["required"]; ok {
		t.Error("removeUser input must not require fields")
	}
	req, _ := descs[AddUser].Input["required"].([]string)
	if len(req) != 2 || req[0] != "userId" || req[1] != "pin" {
		t.Errorf("addUser required = %v", req)
	}
}

// Every addUser input the published schema allows must pass decode, and
// the bounds the schema states must be the ones decode enforces.
func TestDescriptions_MatchValidator(t *testing.T) {
	iv := newInputValidator()
	props, _ := Descriptions()[AddUser].Input["properties"].(map[string]any)
	prop := func(name string) map[string]any {
		t.Helper()
		p, ok := props[name].(map[string]any)
		if !ok {
			t.Fatalf("addUser schema has no %s property", name)
		}
		return p
	}

	maxLen, ok := prop("userName")["maxLength"].(int)
	if !ok {
		t.Fatal("userName schema has no maxLength")
	}
	addUser := func(extra string) error {
		_, err := iv.decode(AddUser, json.RawMessage(`{"userId": 1, "pin": "1"`+extra+`}`))
		return err
	}
	atLimit, _ := json.Marshal(strings.Repeat("é", maxLen))
	if err := addUser(`, "userName": ` + string(atLimit)); err != nil {
		t.Errorf("userName of maxLength %d rejected: %v", maxLen, err)
	}
	overLimit, _ := json.Marshal(strings.Repeat("a", maxLen+1))
	if err := addUser(`, "userName": ` + string(overLimit)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("userName of %d characters error = %v, want ErrInvalidInput", maxLen+1, err)
	}

	for _, field := range []string{"startDate", "endDate"} {
		p := prop(field)
		pattern, _ := p["pattern"].(string)
		if pattern == "" {
			t.Fatalf("%s schema has no pattern", field)
		}
		re := regexp.MustCompile(pattern)
		for _, v := range []string{
			"2026-03-01",
			"2026-03-01T09:30",
			"2026-03-01T09:30:00",
			"2026-03-01 09:30:00",
			"2026-03-01T09:30:00Z",
			"2026-03-01T09:30:00.5+01:00",
		} {
			if !re.MatchString(v) {
				t.Errorf("%s pattern rejects %q", field, v)
				continue
			}
			if err := addUser(fmt.Sprintf(`, %q: %q`, field, v)); err != nil {
				t.Errorf("%s %q matches the schema but decode() error = %v", field, v, err)
			}
		}
		for _, v := range []string{"tomorrow", "2026-03-01T09:30Z"} {
			if re.MatchString(v) {
				t.Errorf("%s pattern accepts %q", field, v)
			}
			if err := addUser(fmt.Sprintf(`, %q: %q`, field, v)); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("%s %q error = %v, want ErrInvalidInput", field, v, err)
			}
		}
	}

	desc, _ := prop("endDate")["description"].(string)
	if !strings.Contains(desc, "not before startDate") {
		t.Errorf("endDate description %q does not state the ordering rule", desc)
	}
	err := addUser(`, "startDate": "2026-03-02", "endDate": "2026-03-01"`)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("endDate before startDate error = %v, want ErrInvalidInput", err)
	}
}
