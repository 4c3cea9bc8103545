package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-simlock/internal/lock"
	"github.com/nerrad567/gray-logic-simlock/internal/metrics"
)

// Source recorded on actions requested over MQTT.
const sourceMQTT = "mqtt"

// Message results counted in metrics.BridgeMessagesTotal.
const (
	resultAccepted  = "accepted"
	resultRejected  = "rejected"
	resultMalformed = "malformed"
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	// PublishJSON marshals v and publishes it at the default QoS.
	PublishJSON(topic string, v any, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe stops delivery for a topic pattern.
	Unsubscribe(topic string) error

	// OnConnect registers a hook run after every reconnect.
	OnConnect(hook func())

	// QoS returns the configured default quality of service.
	QoS() byte
}

// Dispatcher queues validated action requests.
type Dispatcher interface {
	Submit(ctx context.Context, req action.Request) (action.Action, error)
	OnStatus(fn action.StatusObserver)
}

// Device exposes the property state to publish.
type Device interface {
	Properties() map[string]any
	OnPropertyChange(fn lock.PropertyObserver)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds the dependencies of a bridge.
type Options struct {
	// Thing is the Thing Description id used in every topic.
	Thing string

	MQTTClient MQTTClient
	Dispatcher Dispatcher
	Device     Device

	// Logger is optional.
	Logger Logger
}

// Bridge translates between MQTT and the action dispatcher.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	thing      string
	topics     mqtt.Topics
	mqtt       MQTTClient
	dispatcher Dispatcher
	device     Device
	logger     Logger

	// pending maps action ids to the request awaiting a final ack.
	// finished holds results that arrived before the request was recorded.
	mu       sync.Mutex
	pending  map[string]ActionMessage
	finished map[string]action.Action

	started   atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// New creates a bridge and registers it for property and action status
// changes. Call Start to subscribe.
func New(opts Options) (*Bridge, error) {
	if opts.Thing == "" {
		return nil, fmt.Errorf("thing id is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if opts.Device == nil {
		return nil, fmt.Errorf("device is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		thing:      opts.Thing,
		mqtt:       opts.MQTTClient,
		dispatcher: opts.Dispatcher,
		device:     opts.Device,
		logger:     logger,
		pending:    make(map[string]ActionMessage),
		finished:   make(map[string]action.Action),
		ctx:        ctx,
		ctxCancel:  cancel,
	}

	opts.Device.OnPropertyChange(b.publishProperty)
	opts.Dispatcher.OnStatus(b.observe)
	opts.MQTTClient.OnConnect(b.republish)
	return b, nil
}

// Start subscribes to action requests and publishes the current value of
// every property.
func (b *Bridge) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topic := b.topics.AllLockActions(b.thing)
	if err := b.mqtt.Subscribe(topic, b.mqtt.QoS(), b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to actions: %w", err)
	}
	b.logger.Info("subscribed to actions", "topic", topic)

	b.started.Store(true)
	b.publishProperties()

	b.logger.Info("bridge started", "thing", b.thing)
	return nil
}

// republish is the MQTT client's reconnect hook. The broker may have lost
// retained property values along with the connection.
func (b *Bridge) republish() {
	if !b.started.Load() || b.stopped() {
		return
	}
	b.logger.Info("republishing properties after reconnect", "thing", b.thing)
	b.publishProperties()
}

func (b *Bridge) publishProperties() {
	for name, value := range b.device.Properties() {
		b.publishProperty(name, value)
	}
}

// Stop unsubscribes from action requests, cancels requests in flight and
// stops publishing.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()

		if b.started.Load() {
			topic := b.topics.AllLockActions(b.thing)
			if err := b.mqtt.Unsubscribe(topic); err != nil {
				b.logger.Warn("failed to unsubscribe from actions", "topic", topic, "error", err)
			}
		}

		b.mu.Lock()
		b.pending = make(map[string]ActionMessage)
		b.finished = make(map[string]action.Action)
		b.mu.Unlock()

		b.logger.Info("bridge stopped")
	})
}

func (b *Bridge) stopped() bool {
	return b.ctx.Err() != nil
}

// handleMessage processes one action request.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	thing, category, name, ok := mqtt.ParseLockTopic(topic)
	if !ok || category != "action" || thing != mqtt.Segment(b.thing) {
		metrics.BridgeMessagesTotal.WithLabelValues(resultMalformed).Inc()
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	var cmd ActionMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			metrics.BridgeMessagesTotal.WithLabelValues(resultMalformed).Inc()
			b.publishAck(newAckError(cmd, name, "", ErrCodeInvalidPayload, "payload must be a JSON object"))
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	b.logger.Debug("received action request",
		"command_id", cmd.ID,
		"action", name,
		"source", cmd.Source)

	req := action.Request{Name: name, Input: cmd.Input, Source: sourceMQTT}
	a, err := b.dispatcher.Submit(b.ctx, req)
	if err != nil {
		metrics.BridgeMessagesTotal.WithLabelValues(resultRejected).Inc()
		b.publishAck(newAckError(cmd, name, "", errorCode(err), err.Error()))
		b.logger.Warn("action request rejected", "command_id", cmd.ID, "action", name, "error", err)
		return nil
	}
	metrics.BridgeMessagesTotal.WithLabelValues(resultAccepted).Inc()

	// The accepted ack goes out under mu so observe cannot publish the
	// final ack ahead of it.
	b.mu.Lock()
	done, early := b.finished[a.ID]
	if early {
		delete(b.finished, a.ID)
	} else {
		b.pending[a.ID] = cmd
	}
	b.publishAck(newAck(cmd, name, a.ID, AckAccepted))
	b.mu.Unlock()

	if early {
		b.publishAck(resultAck(cmd, done))
	}
	return nil
}

// observe is an action.StatusObserver publishing the final ack of
// actions requested over MQTT.
func (b *Bridge) observe(a action.Action) {
	if a.Source != sourceMQTT || !a.Status.Finished() || b.stopped() {
		return
	}

	b.mu.Lock()
	cmd, ok := b.pending[a.ID]
	if ok {
		delete(b.pending, a.ID)
	} else {
		b.finished[a.ID] = a
	}
	b.mu.Unlock()

	if ok {
		b.publishAck(resultAck(cmd, a))
	}
}

// publishAck publishes ack unretained; acks describe one request only.
func (b *Bridge) publishAck(ack AckMessage) {
	topic := b.topics.LockAck(b.thing, ack.Action)
	if err := b.mqtt.PublishJSON(topic, ack, false); err != nil {
		b.logger.Error("failed to publish ack", "topic", topic, "error", err)
	}
}

// publishProperty is a lock.PropertyObserver publishing the retained value.
func (b *Bridge) publishProperty(name string, value any) {
	if b.stopped() {
		return
	}
	topic := b.topics.LockProperty(b.thing, name)
	if err := b.mqtt.PublishJSON(topic, value, true); err != nil {
		b.logger.Error("failed to publish property", "topic", topic, "error", err)
	}
}

// Pending returns the number of accepted requests awaiting a final ack.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
