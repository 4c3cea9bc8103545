package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/config"
)

func TestTopicBuilders(t *testing.T) {
	const thing = "urn:dev:SimDoorLock"
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"LockAction", Topics{}.LockAction(thing, "addUser"), "graylogic/lock/urn:dev:SimDoorLock/action/addUser"},
		{"LockAck", Topics{}.LockAck(thing, "removeUser"), "graylogic/lock/urn:dev:SimDoorLock/ack/removeUser"},
		{"LockProperty", Topics{}.LockProperty(thing, "locked"), "graylogic/lock/urn:dev:SimDoorLock/property/locked"},
		{"AllLockActions", Topics{}.AllLockActions(thing), "graylogic/lock/urn:dev:SimDoorLock/action/+"},
		{"LockStatus", Topics{}.LockStatus(thing), "graylogic/lock/urn:dev:SimDoorLock/status"},
		{"sanitised thing", Topics{}.LockProperty("door/#1+", "users"), "graylogic/lock/door__1_/property/users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestParseLockTopic(t *testing.T) {
	thing, category, name, ok := ParseLockTopic(Topics{}.LockAction("door-1", "setPinCode"))
	if !ok || thing != "door-1" || category != "action" || name != "setPinCode" {
		t.Errorf("ParseLockTopic() = %q, %q, %q, %v", thing, category, name, ok)
	}

	for _, bad := range []string{
		"graylogic/system/status",
		Topics{}.LockStatus("door-1"),
		"graylogic/lock/door-1/action",
		"graylogic/lock/door-1/action/addUser/extra",
		"graylogic/lock//action/addUser",
		"other/lock/door-1/action/addUser",
	} {
		if _, _, _, ok := ParseLockTopic(bad); ok {
			t.Errorf("ParseLockTopic(%q) ok = true", bad)
		}
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline StatusPayload
	if err := json.Unmarshal(buildOnlinePayload("door-1", "lock-1"), &online); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(buildOfflinePayload("door-1", `quote"id`), &offline); err != nil {
		t.Fatalf("offline payload not valid JSON: %v", err)
	}

	if online.Status != "online" || online.Thing != "door-1" || online.ClientID != "lock-1" || online.Reason != "" {
		t.Errorf("online = %+v", online)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" || offline.ClientID != `quote"id` {
		t.Errorf("offline = %+v", offline)
	}
	if online.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

func TestUnconnectedClient(t *testing.T) {
	c := newClient(config.MQTTConfig{}, "door-1")

	if c.IsConnected() {
		t.Error("IsConnected() = true for new client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := c.Publish("", nil, 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v", err)
	}
	if err := c.Publish("t", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v", err)
	}
	if err := c.Publish("t", make([]byte, maxPayloadSize+1), 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(oversize) error = %v", err)
	}
	if err := c.PublishJSON("t", true, true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJSON() error = %v", err)
	}
	if err := c.PublishJSON("t", func() {}, true); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(func) error = %v", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v", err)
	}
	if err := c.Subscribe("t", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v", err)
	}
	if err := c.Unsubscribe("t"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if len(c.subscriptions) != 0 {
		t.Error("failed subscribe was tracked")
	}
}
