// Package kafka wraps a franz-go client for publishing outbox entries.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"screener/pkg/platform/audit/outbox"
)

// Header keys set on every produced record.
const (
	HeaderEventType = "event_type"
	HeaderOutboxID  = "outbox_id"
)

// Producer publishes outbox entries to a single topic and waits for all
// in-sync replicas to acknowledge.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewProducer connects to brokers. The client is lazy; call Ping or
// EnsureTopic to fail fast on a bad address.
func NewProducer(brokers []string, topic string, logger *slog.Logger, opts ...kgo.Opt) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka producer requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka producer requires a topic")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Ping checks that at least one broker is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if r, ok := resp[p.topic]; ok && r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, r.Err)
	}
	p.logger.InfoContext(ctx, "kafka topic ready", "topic", p.topic)
	return nil
}

// Publish produces one record per entry, keyed by the entry key so events for
// the same submission keep their order within a partition.
func (p *Producer) Publish(ctx context.Context, entries []outbox.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.Key),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: HeaderEventType, Value: []byte(e.EventType)},
				{Key: HeaderOutboxID, Value: []byte(e.ID)},
			},
			Timestamp: e.CreatedAt,
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d records to %s: %w", len(records), p.topic, err)
	}
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() {
	p.client.Close()
}
