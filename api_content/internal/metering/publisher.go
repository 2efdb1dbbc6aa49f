package metering

import (
	"context"
	"encoding/json"
	"fmt"

	"tastesync/pkg/logging"
)

const (
	defaultTopic  = "tastesync.usage_summaries"
	defaultSource = "tastesync"
)

// Producer is the Kafka capability the publisher needs; *kafka.Producer
// satisfies it.
type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type PublisherConfig struct {
	Topic  string
	Source string
	Logger logging.Logger
}

type Publisher struct {
	producer Producer
	topic    string
	source   string
	logger   logging.Logger
}

func NewPublisher(producer Producer, cfg PublisherConfig) (*Publisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer required for usage publisher")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	source := cfg.Source
	if source == "" {
		source = defaultSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Publisher{producer: producer, topic: topic, source: source, logger: logger}, nil
}

// PublishUsageSummary sends one summary keyed by user id so a user's
// summaries stay ordered within a partition.
func (p *Publisher) PublishUsageSummary(ctx context.Context, summary UsageSummary) error {
	if p == nil || p.producer == nil {
		return nil
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal usage summary: %w", err)
	}
	err = p.producer.ProduceMessage(ctx, p.topic, []byte(summary.UserID), payload, map[string]string{
		"source":  p.source,
		"type":    "usage_summary",
		"user_id": summary.UserID,
	})
	if err != nil {
		return fmt.Errorf("publish usage summary: %w", err)
	}
	p.logger.WithFields(logging.Fields{
		"user_id": summary.UserID,
		"topic":   p.topic,
		"tokens":  summary.TotalTokens,
	}).Debug("Published usage summary")
	return nil
}
