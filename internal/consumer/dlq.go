package consumer

import (
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// DLQPublisher publishes undeliverable records to a dead-letter topic.
type DLQPublisher interface {
	Publish(key string, payload []byte) error
	Close() error
}

// KafkaDLQOption configures the Kafka dead-letter publisher.
type KafkaDLQOption func(*KafkaDLQ)

// KafkaDLQ publishes the original record payload to a dead-letter topic via a
// synchronous producer. The payload is forwarded byte for byte, not
// re-serialised, so the DLQ holds exactly what the gateway consumed.
type KafkaDLQ struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

var _ DLQPublisher = (*KafkaDLQ)(nil)

// NewKafkaDLQ creates a dead-letter publisher on the given brokers and topic.
func NewKafkaDLQ(brokers []string, topic string, opts ...KafkaDLQOption) (*KafkaDLQ, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create dead-letter producer: %w", err)
	}

	d := &KafkaDLQ{
		producer: producer,
		topic:    topic,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// WithDLQLogger sets the logger for the dead-letter publisher.
func WithDLQLogger(l *slog.Logger) KafkaDLQOption {
	return func(d *KafkaDLQ) { d.logger = l }
}

// Publish sends payload to the dead-letter topic, keyed so that records for
// one notification land on one partition.
func (d *KafkaDLQ) Publish(key string, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := d.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish to dead-letter topic %s: %w", d.topic, err)
	}
	d.logger.Info("published to dead-letter topic",
		"topic", d.topic,
		"partition", partition,
		"offset", offset,
		"key", key,
	)
	return nil
}

// Close shuts down the producer.
func (d *KafkaDLQ) Close() error {
	return d.producer.Close()
}
