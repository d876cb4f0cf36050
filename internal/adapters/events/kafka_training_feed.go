package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
)

// KafkaTrainingFeed publishes review decisions to the classifier retraining
// topic. Messages are keyed by normalized source text so decisions about the
// same source account land in the same partition, in order.
type KafkaTrainingFeed struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaTrainingFeed creates a publisher against the given brokers.
func NewKafkaTrainingFeed(brokers []string, topic string) *KafkaTrainingFeed {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	slog.Info("Kafka training feed publisher created", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &KafkaTrainingFeed{writer: writer, topic: topic}
}

var _ portssvc.TrainingFeedPublisher = (*KafkaTrainingFeed)(nil)

// PublishReviewDecision sends one decision to the training feed.
func (f *KafkaTrainingFeed) PublishReviewDecision(ctx context.Context, event domain.ReviewDecisionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review decision event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.NormalizedSource),
		Value: value,
		Time:  event.DecidedAt,
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish review decision for line %s: %w", event.LineID, err)
	}
	return nil
}

// Close flushes and releases the underlying writer.
func (f *KafkaTrainingFeed) Close() error {
	return f.writer.Close()
}
