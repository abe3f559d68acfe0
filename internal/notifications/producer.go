// Package notifications publishes visit notifications to Kafka for the
// downstream email and SMS senders.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"visitly/internal/gateways"
	"visitly/pkg/clock"
	"visitly/pkg/logger"

	"github.com/IBM/sarama"
)

// ProducerConfig contains configuration for the Kafka notification producer
type ProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	Compression      sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "visit-notifications",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		Compression:      sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// SaramaConfig translates the producer settings for sarama.
func (c *ProducerConfig) SaramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = c.RequiredAcks
	sc.Producer.Compression = c.Compression
	sc.Producer.Retry.Max = c.RetryMax
	sc.Producer.Timeout = c.Timeout
	sc.Producer.Idempotent = c.IdempotentWrites
	sc.Producer.MaxMessageBytes = c.MaxMessageBytes
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	if c.IdempotentWrites {
		sc.Net.MaxOpenRequests = 1
	}
	return sc
}

// KafkaGateway implements gateways.NotificationGateway on a sync producer.
type KafkaGateway struct {
	producer sarama.SyncProducer
	topic    string
	clock    clock.Clock
	log      *logger.Logger
}

var _ gateways.NotificationGateway = (*KafkaGateway)(nil)

// NewKafkaGateway dials the brokers and returns a ready gateway.
func NewKafkaGateway(cfg *ProducerConfig, clk clock.Clock, log *logger.Logger) (*KafkaGateway, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaGatewayWithProducer(producer, cfg.Topic, clk, log), nil
}

func NewKafkaGatewayWithProducer(producer sarama.SyncProducer, topic string, clk clock.Clock, log *logger.Logger) *KafkaGateway {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaGateway{producer: producer, topic: topic, clock: clk, log: log}
}

// Send publishes one notification and waits for the broker ack.
func (g *KafkaGateway) Send(ctx context.Context, recipient gateways.Recipient, template gateways.Template, data map[string]string) error {
	env := newEnvelope(recipient, template, data, g.clock.Now())
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     g.topic,
		Key:       sarama.StringEncoder(env.PartitionKey()),
		Value:     sarama.ByteEncoder(body),
		Headers:   headers(env),
		Timestamp: env.CreatedAt,
	}
	partition, offset, err := g.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	g.log.DebugContext(ctx, "notification published",
		"topic", g.topic, "partition", partition, "offset", offset, "template", string(template))
	return nil
}

func (g *KafkaGateway) Close() error {
	if g.producer == nil {
		return nil
	}
	if err := g.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

func headers(env *Envelope) []sarama.RecordHeader {
	channels := make([]string, len(env.Channels))
	for i, c := range env.Channels {
		channels[i] = string(c)
	}
	h := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(env.ID.String())},
		{Key: []byte("template"), Value: []byte(env.Template)},
		{Key: []byte("priority"), Value: []byte(env.Priority)},
		{Key: []byte("channels"), Value: []byte(strings.Join(channels, ","))},
		{Key: []byte("producer"), Value: []byte("visitly")},
		{Key: []byte("created_at"), Value: []byte(env.CreatedAt.Format(time.RFC3339))},
	}
	if id := env.Data["booking_id"]; id != "" {
		h = append(h, sarama.RecordHeader{Key: []byte("booking_id"), Value: []byte(id)})
	}
	return h
}
