package redis

import (
	"context"
	"fmt"

	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "tableau:"

// Publisher implements ports.Sink over Redis Pub/Sub.
//
// Each committed batch is published on "<prefix>batches" and the latest
// sequence number is kept in "<prefix>seq", both in one MULTI. Consumers that
// join late read "<prefix>snapshot" (see SaveSnapshot) and then drop batches
// whose seq it already covers.
type Publisher struct {
	client backend.UniversalClient
	prefix string
	codec  codec.Codec
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPrefix sets the key prefix. Default "tableau:".
func WithPrefix(prefix string) PublisherOption {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithCodec sets the wire encoding. Default MessagePack.
func WithCodec(c codec.Codec) PublisherOption {
	return func(p *Publisher) {
		p.codec = c
	}
}

// NewPublisher creates a Redis sink.
func NewPublisher(client backend.UniversalClient, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client: client,
		prefix: defaultPrefix,
		codec:  codec.MsgPack{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Channel returns the Pub/Sub channel batches are published on.
func (p *Publisher) Channel() string { return p.prefix + "batches" }

// SeqKey returns the key holding the last published seq.
func (p *Publisher) SeqKey() string { return p.prefix + "seq" }

// SnapshotKey returns the key holding the last saved snapshot.
func (p *Publisher) SnapshotKey() string { return p.prefix + "snapshot" }

// Publish sends one batch.
func (p *Publisher) Publish(ctx context.Context, b domain.Batch) error {
	data, err := p.codec.Marshal(codec.BatchMessage(b))
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", b.Seq, err)
	}
	_, err = p.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Publish(ctx, p.Channel(), data)
		pipe.Set(ctx, p.SeqKey(), b.Seq, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish batch %d: %w", b.Seq, err)
	}
	return nil
}

// SaveSnapshot stores a full snapshot for late consumers.
func (p *Publisher) SaveSnapshot(ctx context.Context, s domain.Snapshot) error {
	data, err := p.codec.Marshal(codec.SnapshotMessage(s))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.client.Set(ctx, p.SnapshotKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("redis save snapshot: %w", err)
	}
	return nil
}

// Decode decodes a payload written by this publisher.
func (p *Publisher) Decode(data []byte) (map[string]any, error) {
	var msg map[string]any
	if err := p.codec.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}
