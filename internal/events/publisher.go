package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/telemetry"
)

const (
	TopicTransactionRecorded  = "transaction.recorded"
	TopicMerchantLimitUpdated = "merchant.limit.updated"
)

// KafkaPublisher writes JSON events. The writer must not have a fixed Topic
// since each message names its own.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaWriter takes a comma-separated broker list.
func NewKafkaWriter(brokers string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(SplitBrokers(brokers)...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func SplitBrokers(brokers string) []string {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return addrs
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}
	return nil
}

// Discard is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(_ context.Context, topic, key string, _ any) error {
	telemetry.Logger.Debug("Event dropped, no broker configured",
		zap.String("topic", topic),
		zap.String("key", key),
	)
	return nil
}
