package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	brokers    []string
	writer     *kafka.Writer
	maxRetries int
	log        *zap.Logger
}

func NewProducer(brokers []string, log *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers:    brokers,
		writer:     writer,
		maxRetries: 3,
		log:        log,
	}
}

// Publish writes payload as JSON to topic, keyed so that all events of one
// booking land on the same partition. Failed writes are retried with a
// linear backoff.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		if lastErr = p.writer.WriteMessages(ctx, message); lastErr == nil {
			p.log.Debug("published", zap.String("topic", topic), zap.String("key", key))
			return nil
		}
		p.log.Warn("publish attempt failed", zap.String("topic", topic), zap.Int("attempt", i+1), zap.Error(lastErr))

		if i < p.maxRetries-1 {
			select {
			case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("publish to %s failed after %d attempts: %w", topic, p.maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.log.Info("connected to kafka", zap.String("broker", p.brokers[0]), zap.Int("partitions", len(partitions)))
	return nil
}
