package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/vitalsense/cardio-sensor/internal/session"
)

// pendingCapacity bounds how many messages are held while disconnected.
const pendingCapacity = 128

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *ringBuffer

	// onConnectionChange, if set, is called when the broker connection
	// is established or lost. May be called from paho goroutines.
	onConnectionChange func(connected bool)
}

// NewRealPublisher creates a publisher connected to the given broker.
// onConnectionChange may be nil.
func NewRealPublisher(broker string, onConnectionChange func(connected bool)) (*RealPublisher, error) {
	p := &RealPublisher{
		pending:            newRingBuffer(pendingCapacity),
		onConnectionChange: onConnectionChange,
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "connection lost",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("cardio-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetOnConnectHandler(func(paho.Client) {
			p.onConnect()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "error", err)
			if p.onConnectionChange != nil {
				p.onConnectionChange(false)
			}
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays any messages buffered while disconnected.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	msgs, dropped := p.pending.drainAll()
	p.mu.Unlock()

	if len(msgs) > 0 || dropped > 0 {
		slog.Info("mqtt reconnected, replaying buffered messages", "count", len(msgs), "dropped", dropped)
	}
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			slog.Warn("mqtt replay timeout", "topic", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			slog.Warn("mqtt replay failed", "topic", m.topic, "error", err)
		}
	}

	if p.onConnectionChange != nil {
		p.onConnectionChange(true)
	}
}

// publish sends one message, buffering it instead if the broker is down.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.pending.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.pending.len()
		p.mu.Unlock()
		slog.Info("mqtt offline, message buffered", "topic", topic, "pending", n)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishResult sends a completed session result to the MQTT broker.
func (p *RealPublisher) PublishResult(res session.Result) error {
	payload, err := FormatResultPayload(res)
	if err != nil {
		return fmt.Errorf("format result payload: %w", err)
	}

	// QoS 1 (at-least-once), not retained
	return p.publish(TopicResults, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is active.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
