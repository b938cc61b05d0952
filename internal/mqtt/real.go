package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/logic"
)

// DefaultBufferSize is the number of outbound messages kept while disconnected.
const DefaultBufferSize = 100

// ErrNoScreenState is returned by DisplayInteractive when no screen state
// arrived on the screen topic within the initial wait.
var ErrNoScreenState = errors.New("mqtt: no screen state received")

// ClientConfig configures a RealClient.
type ClientConfig struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int
	// InitialWait bounds how long DisplayInteractive waits for the first
	// (normally retained) screen message.
	InitialWait time.Duration
}

// RealClient publishes to an actual MQTT broker and follows the screen topic.
type RealClient struct {
	client paho.Client
	topics Topics
	wait   time.Duration

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // set after the first successful connection

	// deliverMu serialises hand-off to post so the controller sees screen
	// events in arrival order. screenMu only guards the cached state.
	deliverMu  sync.Mutex
	screenMu   sync.Mutex
	screenOn   bool
	screenSeen chan struct{} // closed on the first valid screen message
	seen       bool
	post       func(logic.Event)
	pending    []logic.Event
}

// NewRealClient creates a client connected to the broker and subscribed to
// the screen topic.
func NewRealClient(cfg ClientConfig) (*RealClient, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	c := &RealClient{
		topics:     cfg.Topics,
		wait:       cfg.InitialWait,
		buf:        newRingBuffer(cfg.BufferSize),
		screenSeen: make(chan struct{}),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(cfg.Topics.System, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { go c.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect resubscribes (unless Topics.Screen is empty) and replays buffered
// messages. Runs on its own goroutine so waiting on tokens does not block
// the paho router.
func (c *RealClient) onConnect() {
	if c.topics.Screen != "" {
		token := c.client.Subscribe(c.topics.Screen, 1, func(_ paho.Client, msg paho.Message) {
			c.handleScreen(msg.Payload())
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("mqtt: subscribe %s: %v", c.topics.Screen, token.Error())
		}
	}

	c.mu.Lock()
	reconnect := c.connected
	c.connected = true
	msgs := c.buf.drainAll()
	c.mu.Unlock()

	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	}
	for _, m := range msgs {
		if err := c.send(m); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}

	if reconnect {
		if err := c.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			log.Printf("mqtt: publish reconnected event: %v", err)
		}
	}
}

// handleScreen caches the screen state and forwards the event, or queues it
// until Notify attaches a handler.
func (c *RealClient) handleScreen(payload []byte) {
	ev, err := ParseScreenPayload(payload)
	if err != nil {
		log.Printf("mqtt: %v", err)
		return
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.screenMu.Lock()
	c.screenOn = ev.Kind == logic.EventScreenOn
	if !c.seen {
		c.seen = true
		close(c.screenSeen)
	}
	c.screenMu.Unlock()

	if c.post == nil {
		c.pending = append(c.pending, ev)
		return
	}
	c.post(ev)
}

// DisplayInteractive returns the last screen state received on the screen
// topic, waiting up to the configured initial wait for the first one.
func (c *RealClient) DisplayInteractive() (bool, error) {
	select {
	case <-c.screenSeen:
	default:
		t := time.NewTimer(c.wait)
		defer t.Stop()
		select {
		case <-c.screenSeen:
		case <-t.C:
			return false, ErrNoScreenState
		}
	}
	c.screenMu.Lock()
	defer c.screenMu.Unlock()
	return c.screenOn, nil
}

// Notify delivers screen transitions to post, starting with any received
// before it was called. ctx is unused: the subscription lives as long as the
// client.
func (c *RealClient) Notify(ctx context.Context, post func(logic.Event)) error {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	for _, ev := range c.pending {
		post(ev)
	}
	c.pending = nil
	c.post = post
	return nil
}

// PublishAction sends a gesture action event to the MQTT broker.
func (c *RealClient) PublishAction(event action.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return c.publish(bufferedMsg{topic: c.topics.Actions, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) - lifecycle events should be delivered
	return c.publish(bufferedMsg{topic: c.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// publish sends now if connected, otherwise buffers for replay.
func (c *RealClient) publish(m bufferedMsg) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.buf.push(m)
		c.mu.Unlock()
		return nil
	}
	return c.send(m)
}

func (c *RealClient) send(m bufferedMsg) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the connection to the broker is open.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
