package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/config"
)

// Client is the lock's connection to the broker.
//
// Every (re)connect restores the action subscriptions, publishes the
// lock's retained online status and then runs the OnConnect hooks, which
// is where the device host re-publishes its retained properties. A broker
// that lost its retained store therefore sees the full lock state again
// without waiting for the next property change.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	thing  string

	connected atomic.Bool

	mu            sync.RWMutex
	subscriptions map[string]subscription
	connectHooks  []func()
	onDisconnect  func(err error)
	logger        Logger
}

// Logger is the logging interface used by the client.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
// topic has wildcards expanded. A returned error is logged and does not
// affect message acknowledgment. Handlers run on paho's goroutines and
// should not block.
type MessageHandler func(topic string, payload []byte) error

// Connect connects to the broker as the lock identified by thing. The
// broker publishes an offline status on the lock's status topic if the
// connection drops without Close. It fails with ErrConnectionFailed if the
// broker is not reachable within the connect timeout.
func Connect(cfg config.MQTTConfig, thing string) (*Client, error) {
	c := newClient(cfg, thing)

	opts := buildClientOptions(cfg)
	configureLWT(opts, thing, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.getLogger().Info("MQTT reconnecting", "broker", cfg.Broker.Host, "thing", thing)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously; mark connected now so
	// callers can subscribe immediately.
	c.connected.Store(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig, thing string) *Client {
	return &Client{
		cfg:           cfg,
		thing:         thing,
		subscriptions: make(map[string]subscription),
		logger:        noopLogger{},
	}
}

// handleConnect runs on paho's goroutine after every successful connect.
func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.restoreSubscriptions()
	c.publishStatus(buildOnlinePayload(c.thing, c.cfg.Broker.ClientID))

	c.mu.RLock()
	hooks := make([]func(), len(c.connectHooks))
	copy(hooks, c.connectHooks)
	c.mu.RUnlock()

	for _, hook := range hooks {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to every tracked topic. A clean
// session means the broker forgot them with the old connection.
func (c *Client) restoreSubscriptions() {
	c.mu.RLock()
	subs := make(map[string]subscription, len(c.subscriptions))
	for topic, sub := range c.subscriptions {
		subs[topic] = sub
	}
	c.mu.RUnlock()

	for topic, sub := range subs {
		token := c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
		if !token.WaitTimeout(defaultPublishTimeout) {
			c.getLogger().Warn("MQTT resubscribe timed out", "topic", topic)
			continue
		}
		if err := token.Error(); err != nil {
			c.getLogger().Error("MQTT resubscribe failed", "topic", topic, "error", err)
		}
	}
}

// publishStatus publishes payload retained on the lock's status topic and
// waits for the broker to take it.
func (c *Client) publishStatus(payload []byte) {
	topic := Topics{}.LockStatus(c.thing)
	token := c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.getLogger().Warn("MQTT status publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		c.getLogger().Error("MQTT status publish failed", "topic", topic, "error", err)
	}
}

// Close publishes a graceful offline status and disconnects. Closing an
// unconnected client is not an error.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(buildOfflinePayload(c.thing, c.cfg.Broker.ClientID))
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// OnConnect registers hook to run after every reconnect, once subscriptions
// are restored and the online status is published. Hooks run in
// registration order on paho's goroutine.
func (c *Client) OnConnect(hook func()) {
	c.mu.Lock()
	c.connectHooks = append(c.connectHooks, hook)
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for handler errors and connection events.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts handler to paho, recovering panics and logging
// returned errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.getLogger().Error("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.getLogger().Warn("MQTT handler returned error",
				"topic", msg.Topic(),
				"error", err,
			)
		}
	}
}
