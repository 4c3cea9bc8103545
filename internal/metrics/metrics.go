// Package metrics defines and registers the Prometheus metrics for SimLock.
// It is the single source of truth for metric names, labels, and help strings.
//
// All metrics are registered with the default registry on package init via
// promauto; the API serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "simlock"

// ── Action metrics ────────────────────────────────────────────────────────────

// ActionsRequestedTotal counts action requests accepted into the queue.
// Labels:
//   - action: addUser, removeUser or setPinCode
//   - source: the host that submitted the request (e.g. "http", "ws", "mqtt")
var ActionsRequestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_requested_total",
		Help:      "Total number of action requests accepted into the queue.",
	},
	[]string{"action", "source"},
)

// ActionsRejectedTotal counts action requests refused before queuing.
// Labels:
//   - action: the requested action name, or "unknown"
//   - reason: "unknown_action", "invalid_input", "queue_full" or "closed"
var ActionsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_rejected_total",
		Help:      "Total number of action requests rejected before queuing.",
	},
	[]string{"action", "reason"},
)

// ActionsFinishedTotal counts actions that left the queue.
// Labels:
//   - action: addUser, removeUser or setPinCode
//   - status: "completed", "failed" or "cancelled"
var ActionsFinishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_finished_total",
		Help:      "Total number of actions that finished, by final status.",
	},
	[]string{"action", "status"},
)

// ActionDuration measures how long the device takes to apply one action.
var ActionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "action_duration_seconds",
		Help:      "Duration of applying an action to the device.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	},
	[]string{"action"},
)

// ActionQueueDepth tracks the number of actions waiting for the worker.
var ActionQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "action_queue_depth",
		Help:      "Current number of actions waiting to be applied.",
	},
)

// ── Lock metrics ──────────────────────────────────────────────────────────────

// LockUsers tracks the number of users stored on the lock.
var LockUsers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lock_users",
		Help:      "Number of authorised users stored on the lock.",
	},
)

// LockLocked is 1 while the lock is engaged and 0 otherwise.
var LockLocked = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lock_locked",
		Help:      "Whether the lock is engaged (1) or released (0).",
	},
)

// ── Host metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures HTTP request latency.
// Labels:
//   - method: HTTP method
//   - route: chi route pattern (e.g. "/actions/{name}")
//   - code: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the device host.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "code"},
)

// WebSocketClients tracks connected websocket clients.
var WebSocketClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Current number of connected websocket clients.",
	},
)

// BridgeMessagesTotal counts MQTT action messages handled by the bridge.
// Label:
//   - result: "accepted", "rejected" or "malformed"
var BridgeMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bridge_messages_total",
		Help:      "Total number of MQTT action messages handled, by result.",
	},
	[]string{"result"},
)

// ObserveLockState updates the lock gauges from a property snapshot.
func ObserveLockState(locked bool, users int) {
	if locked {
		LockLocked.Set(1)
	} else {
		LockLocked.Set(0)
	}
	LockUsers.Set(float64(users))
}
