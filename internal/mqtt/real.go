package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"
)

// Defaults for Config fields left zero.
const (
	DefaultBufferSize      = 256
	DefaultConnectRetries  = 10
	DefaultBreakerFailures = 3
	DefaultBreakerTimeout  = 30 * time.Second

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var errPublishTimeout = errors.New("publish timeout")

// Config configures a RealPublisher.
type Config struct {
	Broker   string
	Device   string
	Username string
	Password string

	ConnectRetries  int
	BufferSize      int
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// OnDrop, if set, is called for every buffered message lost to overflow.
	OnDrop func()
}

// RealPublisher publishes to an actual MQTT broker. Messages that cannot be
// delivered (disconnected, breaker open, publish failure) are kept in a ring
// buffer and replayed after the next successful connect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	cb     *gobreaker.CircuitBreaker
	onDrop func()

	mu  sync.Mutex
	buf *ringBuffer

	retries int
}

// NewRealPublisher creates a publisher for the given broker. It does not
// connect; call Connect.
func NewRealPublisher(cfg Config) *RealPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = DefaultConnectRetries
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultBreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultBreakerTimeout
	}

	p := &RealPublisher{
		topics:  TopicsFor(cfg.Device),
		onDrop:  cfg.OnDrop,
		buf:     newRingBuffer(cfg.BufferSize),
		retries: cfg.ConnectRetries,
	}

	failures := cfg.BreakerFailures
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mqtt-publish",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("mqtt: breaker %s %s -> %s", name, from, to)
		},
	})

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("plant-irrigator-" + cfg.Device).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetWill(p.topics.System, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", cfg.Broker)
			go p.replay()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	return p
}

// Connect dials the broker with exponential backoff, giving up after the
// configured number of retries or when ctx is done. Once connected the client
// reconnects on its own.
func (p *RealPublisher) Connect(ctx context.Context) error {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.retries)), ctx)

	err := backoff.Retry(func() error {
		token := p.client.Connect()
		if !token.WaitTimeout(connectTimeout) {
			return fmt.Errorf("connection timeout")
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: connect failed: %v", err)
			return err
		}
		return nil
	}, bo)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// PublishReading sends a sensor sample (QoS 0, retained so dashboards see the latest).
func (p *RealPublisher) PublishReading(r Reading) error {
	payload, err := FormatReading(r)
	if err != nil {
		return fmt.Errorf("format reading: %w", err)
	}
	return p.publish(p.topics.Readings, 0, true, payload)
}

// PublishEvent sends a watering event (QoS 1).
func (p *RealPublisher) PublishEvent(e WateringEvent) error {
	payload, err := FormatEvent(e)
	if err != nil {
		return fmt.Errorf("format event: %w", err)
	}
	return p.publish(p.topics.Events, 1, false, payload)
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.topics.System, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	msg := bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}

	if !p.client.IsConnected() {
		p.buffer(msg)
		return nil
	}

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.send(msg)
	})
	if err != nil {
		p.buffer(msg)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("publish %s: breaker %s, buffered", topic, p.cb.State())
		}
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (p *RealPublisher) buffer(msg bufferedMsg) {
	p.mu.Lock()
	ok := p.buf.push(msg)
	p.mu.Unlock()
	if !ok && p.onDrop != nil {
		p.onDrop()
	}
}

// replay sends buffered messages oldest first. Anything that fails goes back
// into the buffer.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.buf.drainAll()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	for i, m := range msgs {
		if err := p.send(m); err != nil {
			log.Printf("mqtt: replay stopped after %d messages: %v", i, err)
			for _, rest := range msgs[i:] {
				p.buffer(rest)
			}
			return
		}
	}
}

// Buffered returns the number of messages awaiting replay.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}
