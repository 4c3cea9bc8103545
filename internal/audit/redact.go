package audit

import (
	"encoding/json"
	"strings"
)

// Redacted replaces secret values in stored inputs.
const Redacted = "[REDACTED]"

// secretKeys are matched case-insensitively, the same way encoding/json
// binds object keys to struct fields.
var secretKeys = []string{"pin"}

// RedactInput returns a copy of an action input object with secret fields
// replaced by Redacted. Empty, null or non-object input becomes {}.
func RedactInput(raw json.RawMessage) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return json.RawMessage(`{}`)
	}
	for key := range fields {
		if isSecret(key) {
			fields[key] = json.RawMessage(`"` + Redacted + `"`)
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return out
}

func isSecret(key string) bool {
	for _, s := range secretKeys {
		if strings.EqualFold(key, s) {
			return true
		}
	}
	return false
}
