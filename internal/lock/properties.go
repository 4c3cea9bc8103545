package lock

// Property names exposed by the device.
const (
	PropertyLocked = "locked"
	PropertyUsers  = "users"
)

// PropertyDescription is the metadata a host publishes for one property.
type PropertyDescription struct {
	AtType      string         `json:"@type,omitempty"`
	Title       string         `json:"title"`
	Label       string         `json:"label,omitempty"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	ReadOnly    bool           `json:"readOnly"`
	Items       map[string]any `json:"items,omitempty"`
}

// PropertyDescriptions returns the metadata for every device property,
// keyed by property name.
func PropertyDescriptions() map[string]PropertyDescription {
	return map[string]PropertyDescription{
		PropertyLocked: {
			AtType:      "BooleanProperty",
			Title:       "Locked",
			Label:       "Locked",
			Type:        "boolean",
			Description: "Whether the lock is engaged",
		},
		PropertyUsers: {
			Title:       "Users",
			Label:       "Users",
			Type:        "array",
			Description: "Authorised keypad users",
			ReadOnly:    true,
			Items: map[string]any{
				"type": "object",
			},
		},
	}
}

// PropertyNames returns the device property names in a stable order.
func PropertyNames() []string {
	return []string{PropertyLocked, PropertyUsers}
}
