package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes messages to a Kafka topic, keyed by recipient so a
// single actor's notifications stay ordered within a partition.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaNotifier connects to the given brokers. The connection is verified
// lazily on first produce; broker outages surface per message, not at startup.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic, logger: logger}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(strconv.FormatInt(int64(msg.Recipient), 10)),
		Value: payload,
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	n.logger.Debug("notification published",
		"kind", msg.Kind,
		"recipient", msg.Recipient,
	)
	return nil
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}
