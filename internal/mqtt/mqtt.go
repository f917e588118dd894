package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"airquality-dashboard/internal/config"
)

// Subscriber receives observation messages from the broker and passes the
// valid ones to its handler.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	handler   Handler

	// subscribed is set after the first successful subscribe so that
	// reconnects restore the subscription on a clean session
	subscribed atomic.Bool

	received atomic.Uint64
	rejected atomic.Uint64
}

// Handler processes one valid observation message.
type Handler func(msg ObservationMessage) error

// MessageSubscriber is the part of Subscriber that feature modules attach to.
type MessageSubscriber interface {
	SetMessageHandler(handler Handler)
}

// SetMessageHandler replaces the handler for observation messages.
func (s *Subscriber) SetMessageHandler(handler Handler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Stats returns how many messages arrived and how many were rejected.
func (s *Subscriber) Stats() (received, rejected uint64) {
	return s.received.Load(), s.rejected.Load()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) (*Subscriber, error) {
	s := &Subscriber{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if s.subscribed.Load() {
			// callbacks must not block on tokens
			go func() {
				if err := s.subscribe(); err != nil {
					logger.Error("mqtt resubscribe failed", "topic", cfg.MQTTTopic, "error", err)
				}
			}()
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Connect establishes connection to the MQTT broker and subscribes to the configured topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	// wait in a ctx/stop-aware loop
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			break
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	s.subscribed.Store(true)

	return nil
}

func (s *Subscriber) subscribe() error {
	// the connect token can complete before the OnConnect callback runs,
	// so ask the client rather than our own flag
	if !s.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	qos := byte(1) // at least once

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.received.Add(1)
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var msg ObservationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.rejected.Add(1)
		s.logger.Warn("failed to parse observation message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	if err := msg.Validate(); err != nil {
		s.rejected.Add(1)
		s.logger.Warn("invalid observation message",
			"topic", topic,
			"station", msg.Station,
			"error", err,
		)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		s.logger.Warn("no handler for observation message", "topic", topic)
		return
	}

	if err := handler(msg); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"station", msg.Station,
			"error", err,
		)
		return
	}
	attrs := []any{"station", msg.Station, "timestamp", msg.Timestamp}
	if msg.Sequence != nil {
		attrs = append(attrs, "sequence", *msg.Sequence)
	}
	s.logger.Debug("processed observation message", attrs...)
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.subscribed.Store(false)

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}

	// not under s.mu: the connection-lost callback takes it
	if s.client != nil {
		s.client.Disconnect(250)
	}
	s.setConnected(false)
	received, rejected := s.Stats()
	s.logger.Info("mqtt subscriber disconnected", "received", received, "rejected", rejected)
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
