// Package bridge exposes the lock over MQTT.
//
// The bridge is a second device host next to the HTTP API. It subscribes to
// action requests, forwards them to the action dispatcher and publishes
// acknowledgements and retained property state:
//
//	graylogic/lock/{thing}/action/{name}    ← {"id","input","source"}
//	graylogic/lock/{thing}/ack/{name}       → accepted, then completed|failed
//	graylogic/lock/{thing}/property/{name}  → retained current value
//
// Every accepted request gets exactly two acks: "accepted" once the
// dispatcher has queued it and "completed" or "failed" once it finishes.
// A rejected request gets a single "failed" ack carrying an error code.
package bridge
