package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixLock is the base for all device host topics. Lock topics
// follow graylogic/lock/{thing}/{category}/{name}.
const TopicPrefixLock = "graylogic/lock"

// Topics provides builders for SimLock MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.LockProperty("urn:dev:SimDoorLock", "locked")
//	// Returns: "graylogic/lock/urn:dev:SimDoorLock/property/locked"
type Topics struct{}

// Segment makes s safe for use as a single topic level by replacing the
// level separator and wildcard characters.
func Segment(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}

// LockAction returns the topic hosts publish action requests to.
//
// Example: graylogic/lock/urn:dev:SimDoorLock/action/addUser
func (Topics) LockAction(thing, action string) string {
	return fmt.Sprintf("%s/%s/action/%s", TopicPrefixLock, Segment(thing), Segment(action))
}

// LockAck returns the topic action acknowledgements are published on.
//
// Example: graylogic/lock/urn:dev:SimDoorLock/ack/addUser
func (Topics) LockAck(thing, action string) string {
	return fmt.Sprintf("%s/%s/ack/%s", TopicPrefixLock, Segment(thing), Segment(action))
}

// LockProperty returns the retained topic for a property value.
//
// Example: graylogic/lock/urn:dev:SimDoorLock/property/users
func (Topics) LockProperty(thing, property string) string {
	return fmt.Sprintf("%s/%s/property/%s", TopicPrefixLock, Segment(thing), Segment(property))
}

// AllLockActions returns a pattern matching every action request for thing.
//
// Pattern: graylogic/lock/urn:dev:SimDoorLock/action/+
func (Topics) AllLockActions(thing string) string {
	return fmt.Sprintf("%s/%s/action/+", TopicPrefixLock, Segment(thing))
}

// LockStatus returns the retained online/offline topic of a lock.
//
// Example: graylogic/lock/urn:dev:SimDoorLock/status
func (Topics) LockStatus(thing string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixLock, Segment(thing))
}

// ParseLockTopic splits a lock topic into its thing, category and name.
// ok is false when topic is not a graylogic/lock topic with exactly those
// three levels.
func ParseLockTopic(topic string) (thing, category, name string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixLock+"/")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
