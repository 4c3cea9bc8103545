package action

import "github.com/nerrad567/gray-logic-simlock/internal/lock"

// Metadata describes an action for the Thing Description.
type Metadata struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Input       map[string]any `json:"input"`
}

func userIDSchema(description string) map[string]any {
	return map[string]any{
		"title":       "User Id",
		"label":       "User Id",
		"description": description,
		"type":        "integer",
		"minimum":     int(lock.MinSlot),
		"maximum":     int(lock.MaxSlot),
	}
}

func pinSchema() map[string]any {
	return map[string]any{
		"title":       "PIN Code",
		"label":       "PIN Code",
		"description": "Numerical PIN Code to set",
		"type":        "string",
		"pattern":     "^[0-9]+$",
		"maxLength":   lock.MaxPINLength,
	}
}

const scheduleFormats = "A calendar date (2026-03-01), a local time without zone " +
	"(2026-03-01T09:30, 2026-03-01T09:30:00 or 2026-03-01 09:30:00), read as UTC, " +
	"or an RFC 3339 date-time with offset (2026-03-01T09:30:00+01:00)."

func scheduleSchema(title, description string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": description,
		"type":        "string",
		"pattern":     lock.SchedulePattern,
	}
}

// Descriptions returns the metadata of every supported action keyed by name.
func Descriptions() map[string]Metadata {
	statuses := make([]string, 0, 2)
	for _, s := range lock.AllUserStatuses() {
		statuses = append(statuses, string(s))
	}

	return map[string]Metadata{
		AddUser: {
			Title:       "Add User",
			Description: "Add a user to a door lock.",
			Input: map[string]any{
				"type":     "object",
				"required": []string{"userId", "pin"},
				"properties": map[string]any{
					"userName": map[string]any{
						"title":       "User Name",
						"description": "Name of the User",
						"type":        "string",
						"maxLength":   lock.MaxUserNameLength,
					},
					"userId": userIDSchema("User entry to set 0 - Max PinCode Users supported by the Lock"),
					"status": map[string]any{
						"title":       "Status",
						"description": "Enabled or Disabled",
						"enum":        statuses,
					},
					"pin": pinSchema(),
					"startDate": scheduleSchema("Start Date/Time",
						"Start Date and Time for the schedule. "+scheduleFormats),
					"endDate": scheduleSchema("End Date/Time",
						"End Date and Time for the schedule, not before startDate. "+scheduleFormats),
				},
			},
		},
		RemoveUser: {
			Title:       "Remove User",
			Description: "Removes a user",
			Input: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"userId": userIDSchema("User entry to remove"),
				},
			},
		},
		SetPinCode: {
			Title:       "Set User PIN Code",
			Description: "Set the PIN code for a specific user",
			Input: map[string]any{
				"type":     "object",
				"required": []string{"userId", "pin"},
				"properties": map[string]any{
					"userId": userIDSchema("User entry to set"),
					"pin":    pinSchema(),
				},
			},
		},
	}
}
