package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

func dialWS(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()
	srv, h := testServer(t)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until one of the given type satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, messageType string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", messageType, err)
		}
		if msg.MessageType == messageType && (match == nil || match(msg.Data)) {
			return msg.Data
		}
	}
}

func TestWebSocket_SetProperty(t *testing.T) {
	srv, conn := dialWS(t)

	send(t, conn, `{"messageType":"setProperty","data":{"locked":false}}`)

	data := readUntil(t, conn, WSTypePropertyStatus, nil)
	if string(data) != `{"locked":false}` {
		t.Errorf("propertyStatus data = %s", data)
	}
	if srv.device.Locked() {
		t.Error("device still locked")
	}
}

func TestWebSocket_RequestAction(t *testing.T) {
	srv, conn := dialWS(t)

	send(t, conn, `{"messageType":"requestAction","data":{"addUser":{"input":{"userId":2,"pin":"4321"}}}}`)

	data := readUntil(t, conn, WSTypeActionStatus, func(raw json.RawMessage) bool {
		var body map[string]actionRecord
		return json.Unmarshal(raw, &body) == nil && body[action.AddUser].Status == action.StatusCompleted
	})
	var body map[string]actionRecord
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatal(err)
	}
	if rec := body[action.AddUser]; !strings.HasPrefix(rec.Href, "/actions/addUser/") {
		t.Errorf("record = %+v", rec)
	}

	users := srv.device.Users()
	if len(users) != 1 || users[0].SlotID != 2 || users[0].PIN != "4321" {
		t.Errorf("users = %+v", users)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	_, conn := dialWS(t)

	tests := []struct {
		name    string
		msg     string
		wantMsg string
	}{
		{"malformed", `not json`, "parsing request failed"},
		{"data not object", `{"messageType":"setProperty","data":[1]}`, "data must be an object"},
		{"unknown type", `{"messageType":"reboot","data":{}}`, "unknown messageType: reboot"},
		{"read-only property", `{"messageType":"setProperty","data":{"users":[]}}`, lock.ErrReadOnlyProperty.Error()},
		{"invalid input", `{"messageType":"requestAction","data":{"setPinCode":{"input":{}}}}`, "userId is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msg)
			data := readUntil(t, conn, WSTypeError, nil)

			var e struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(data, &e); err != nil {
				t.Fatal(err)
			}
			if e.Status != "400 Bad Request" {
				t.Errorf("status = %q", e.Status)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestHub_BroadcastAndUnregister(t *testing.T) {
	hub := NewHub(testDeps(t).WS, testLogger())
	client := &WSClient{hub: hub, send: make(chan []byte, 1)}

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d", hub.ClientCount())
	}

	hub.BroadcastProperty(lock.PropertyLocked, true)
	var msg WSMessage
	if err := json.Unmarshal(<-client.send, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.MessageType != WSTypePropertyStatus || string(msg.Data) != `{"locked":true}` {
		t.Errorf("message = %s %s", msg.MessageType, msg.Data)
	}

	// A full buffer drops rather than blocks.
	hub.Broadcast(WSTypePropertyStatus, map[string]bool{"locked": false})
	hub.Broadcast(WSTypePropertyStatus, map[string]bool{"locked": true})

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister", hub.ClientCount())
	}

	// Sending to a closed client must not panic.
	client.trySend([]byte("late"))
}
