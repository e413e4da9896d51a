package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// Client is the part of paho.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Config describes the broker connection and topic layout.
type Config struct {
	Broker   string
	ClientID string
	// Topic is the root; batches go to <Topic>/batches, the snapshot to
	// <Topic>/snapshot (retained) and control states to <Topic>/gui/<label>
	// (retained).
	Topic   string
	QoS     byte
	Timeout time.Duration
}

// Publisher implements ports.Sink over MQTT.
type Publisher struct {
	client    Client
	cfg       Config
	codec     codec.Codec
	logger    *slog.Logger
	published atomic.Uint64
	failed    atomic.Uint64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithCodec sets the wire encoding. Default MessagePack.
func WithCodec(c codec.Codec) Option {
	return func(p *Publisher) {
		p.codec = c
	}
}

// WithLogger configures a logger for the Publisher.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates an MQTT sink on an already connected client.
func NewPublisher(client Client, cfg Config, opts ...Option) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = "tableau"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	p := &Publisher{
		client: client,
		cfg:    cfg,
		codec:  codec.MsgPack{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the broker with auto-reconnect enabled.
func Connect(cfg Config, logger *slog.Logger) (paho.Client, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(paho.Client) {
		logger.Info("MQTT connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost, will auto-reconnect", "broker", cfg.Broker, "err", err)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout: %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

// BatchTopic returns the topic batches are published on.
func (p *Publisher) BatchTopic() string { return p.cfg.Topic + "/batches" }

// SnapshotTopic returns the topic the retained snapshot is published on.
func (p *Publisher) SnapshotTopic() string { return p.cfg.Topic + "/snapshot" }

// GUITopic returns the retained topic of one control.
func (p *Publisher) GUITopic(label string) string { return p.cfg.Topic + "/gui/" + label }

// Publish sends one batch.
func (p *Publisher) Publish(ctx context.Context, b domain.Batch) error {
	data, err := p.codec.Marshal(codec.BatchMessage(b))
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", b.Seq, err)
	}
	return p.send(p.BatchTopic(), false, data)
}

// PublishSnapshot sends a retained full snapshot.
func (p *Publisher) PublishSnapshot(s domain.Snapshot) error {
	data, err := p.codec.Marshal(codec.SnapshotMessage(s))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.send(p.SnapshotTopic(), true, data)
}

// PublishGUI sends a retained control state. Failures are logged.
func (p *Publisher) PublishGUI(state domain.ControlState) {
	data, err := p.codec.Marshal(codec.GUIMessage(state))
	if err == nil {
		err = p.send(p.GUITopic(state.Label), true, data)
	}
	if err != nil {
		p.logger.Warn("MQTT GUI publish failed", "label", state.Label, "err", err)
	}
}

// Stats returns the number of acknowledged and failed publishes.
func (p *Publisher) Stats() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}

func (p *Publisher) send(topic string, retained bool, data []byte) error {
	token := p.client.Publish(topic, p.cfg.QoS, retained, data)
	if !token.WaitTimeout(p.cfg.Timeout) {
		p.failed.Add(1)
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	p.published.Add(1)
	p.logger.Debug("MQTT published", "topic", topic, "qos", p.cfg.QoS, "size", len(data))
	return nil
}
