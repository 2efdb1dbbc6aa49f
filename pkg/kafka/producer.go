package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"tastesync/pkg/config"
	"tastesync/pkg/logging"
)

const defaultProduceTimeout = 5 * time.Second

// Config configures a producer.
type Config struct {
	Brokers        []string
	ClientID       string
	ProduceTimeout time.Duration
}

// LoadConfig reads KAFKA_BROKERS, KAFKA_CLIENT_ID and KAFKA_PRODUCE_TIMEOUT.
// An empty broker list means Kafka is disabled.
func LoadConfig() Config {
	return Config{
		Brokers:        config.GetEnvList("KAFKA_BROKERS"),
		ClientID:       config.GetEnv("KAFKA_CLIENT_ID", "tastesync"),
		ProduceTimeout: config.GetEnvDuration("KAFKA_PRODUCE_TIMEOUT", defaultProduceTimeout),
	}
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

// Producer publishes JSON records over franz-go.
type Producer struct {
	client  *kgo.Client
	logger  logging.Logger
	timeout time.Duration
}

// NewProducer creates a producer. The client connects lazily, so this does not
// fail when brokers are unreachable.
func NewProducer(cfg Config, logger logging.Logger) (*Producer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka brokers required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "tastesync"
	}
	timeout := cfg.ProduceTimeout
	if timeout <= 0 {
		timeout = defaultProduceTimeout
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{client: client, logger: logger, timeout: timeout}, nil
}

// Close releases the client.
func (p *Producer) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	p.client.Close()
	return nil
}

// ProduceMessage synchronously writes one record.
func (p *Producer) ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.ProduceSync(ctx, NewRecord(topic, key, value, headers)).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Ping checks broker connectivity. It satisfies monitoring.Pinger.
func (p *Producer) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

// NewRecord builds a record with headers in key order.
func NewRecord(topic string, key, value []byte, headers map[string]string) *kgo.Record {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if len(headers) == 0 {
		return record
	}
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(headers[k])})
	}
	return record
}
