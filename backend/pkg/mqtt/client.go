package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smartfarm-backend/backend/pkg/utils"
)

// ErrNotConnected is returned by Publish while the broker connection is down.
// Commands with liveness preconditions react to it instead of queueing.
var ErrNotConnected = errors.New("mqtt client is not connected")

// dispatchBuffer bounds the inbound message queue between the paho read loop
// and the dispatcher goroutine.
const dispatchBuffer = 256

// Message is an inbound transport message.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Handler processes one inbound message. Handlers run on a single dispatcher
// goroutine, so delivery order within a topic is preserved.
type Handler func(msg Message)

type subscription struct {
	filter  string
	qos     byte
	handler Handler
}

type envelope struct {
	msg     Message
	handler Handler
}

// ClientOptions contains configuration for creating an MQTT client.
type ClientOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// Client wraps a paho client with auto-reconnect, resubscribe-on-connect and
// a single dispatcher goroutine for inbound messages.
type Client struct {
	l    *slog.Logger
	paho mqtt.Client

	subs    []subscription
	inbox   chan envelope
	done    chan struct{}
	started atomic.Bool
}

// NewClient creates an MQTT client for the given broker configuration.
func NewClient(l *slog.Logger, opts ClientOptions) (*Client, error) {
	l = l.With(slog.String("component", "mqtt-client"))

	if opts.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}

	if opts.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	c := &Client{
		l:     l,
		inbox: make(chan envelope, dispatchBuffer),
		done:  make(chan struct{}),
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}

	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	// Retry every 5 seconds, forever. The remote device may be intermittently
	// powered, so there is no maximum retry count.
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(5 * time.Second)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetMaxReconnectInterval(15 * time.Second)
	clientOpts.SetKeepAlive(30 * time.Second)

	clientOpts.SetOnConnectHandler(c.onConnect)
	clientOpts.SetConnectionLostHandler(c.onConnectionLost)
	clientOpts.SetReconnectingHandler(c.onReconnecting)

	c.paho = mqtt.NewClient(clientOpts)

	l.Info("MQTT client created", slog.String("broker", opts.BrokerURL), slog.String("clientID", opts.ClientID))

	return c, nil
}

// Subscribe registers a topic filter and handler. Must be called before
// Connect; the subscriptions are (re)established on every connect.
func (c *Client) Subscribe(filter string, qos byte, handler Handler) error {
	if c.started.Load() {
		return errors.New("cannot register subscription after connecting")
	}

	if filter == "" {
		return errors.New("topic filter is required")
	}

	if handler == nil {
		return errors.New("handler is required")
	}

	c.subs = append(c.subs, subscription{filter: filter, qos: qos, handler: handler})
	c.l.Info("Registered MQTT subscription", slog.String("topic", filter))

	return nil
}

// MustSubscribe registers a subscription and panics on registration errors.
func (c *Client) MustSubscribe(filter string, qos byte, handler Handler) {
	if err := c.Subscribe(filter, qos, handler); err != nil {
		panic(fmt.Sprintf("mqtt subscribe %s: %v", filter, err))
	}
}

// Connect starts the dispatcher and connects to the broker, waiting for the
// initial connection to complete.
func (c *Client) Connect() error {
	c.started.Store(true)

	go c.dispatch()

	c.l.Info("Connecting to MQTT broker...")

	token := c.paho.Connect()
	token.Wait()

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return nil
}

// Disconnect stops the dispatcher and disconnects from the broker.
func (c *Client) Disconnect() {
	close(c.done)

	if !c.paho.IsConnected() {
		return
	}

	c.l.Info("Disconnecting from MQTT broker...")
	c.paho.Disconnect(250) // 250ms grace period
	c.l.Info("Disconnected from MQTT broker")
}

// IsConnected reports whether the broker connection is currently open.
func (c *Client) IsConnected() bool {
	return c.paho.IsConnectionOpen()
}

// Publish sends payload to topic. It reports failure instead of queueing
// when the connection is down, so one bad publish never stops a caller loop.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.paho.IsConnectionOpen() {
		return fmt.Errorf("publish to %s: %w", topic, ErrNotConnected)
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	return nil
}

// PublishJSON serializes v to JSON and publishes it.
func (c *Client) PublishJSON(topic string, qos byte, retained bool, v any) error {
	payload, err := utils.ToJSON(v)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	return c.Publish(topic, qos, retained, payload)
}

// PublishString publishes a plain text payload.
func (c *Client) PublishString(topic string, qos byte, retained bool, payload string) error {
	return c.Publish(topic, qos, retained, []byte(payload))
}

// dispatch drains the inbox on a single goroutine so handlers observe
// messages in arrival order.
func (c *Client) dispatch() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.inbox:
			env.handler(env.msg)
		}
	}
}

// onConnect is called on every successful connect or reconnect.
func (c *Client) onConnect(client mqtt.Client) {
	c.l.Info("Connected to MQTT broker, subscribing to topics", slog.Int("subscriptionCount", len(c.subs)))

	for _, sub := range c.subs {
		handler := sub.handler

		token := client.Subscribe(sub.filter, sub.qos, func(_ mqtt.Client, msg mqtt.Message) {
			env := envelope{
				msg: Message{
					Topic:    msg.Topic(),
					Payload:  msg.Payload(),
					Retained: msg.Retained(),
				},
				handler: handler,
			}

			select {
			case c.inbox <- env:
			default:
				// Do not block the paho read loop; a stalled dispatcher
				// loses this message.
				c.l.Error("dispatch queue full, dropping message", slog.String("topic", msg.Topic()))
			}
		})
		token.Wait()

		if err := token.Error(); err != nil {
			c.l.Error("Failed to subscribe", slog.String("topic", sub.filter), utils.ErrAttr(err))
			continue
		}

		c.l.Info("Subscribed", slog.String("topic", sub.filter))
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.l.Warn("Connection to MQTT broker lost", utils.ErrAttr(err))
}

func (c *Client) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.l.Info("Reconnecting to MQTT broker", slog.String("broker", opts.Servers[0].String()))
}
