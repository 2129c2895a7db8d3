package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/config"
)

// MessageHandler processes one consumed record. A nil return commits its offset.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	// Consume blocks until ctx is cancelled or a fatal broker error occurs.
	Consume(ctx context.Context, topics []string, handler MessageHandler) error
	Close()
}

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	groupID  string
	logger   *zap.Logger
}

// NewConfluentKafkaConsumer creates a consumer in group KAFKA.CONSUMER_GROUP with manual commits.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig, logger *zap.Logger) (MessageConsumer, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(cfg.Brokers, ","),
		"group.id":           cfg.ConsumerGroup,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": "false",
		"security.protocol":  cfg.Protocol,
	}
	if cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer for group %s: %w", cfg.ConsumerGroup, err)
	}
	return &confluentKafkaConsumer{
		consumer: consumer,
		groupID:  cfg.ConsumerGroup,
		logger:   logger.Named("kafka.consumer").With(zap.String("group", cfg.ConsumerGroup)),
	}, nil
}

func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, c.groupID, err)
	}
	c.logger.Info("kafka consumer started", zap.Strings("topics", topics))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer stopping")
			return nil
		default:
		}

		ev := c.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := handler(ctx, e); err != nil {
				c.logger.Warn("kafka record not processed",
					zap.String("topic", *e.TopicPartition.Topic),
					zap.Any("offset", e.TopicPartition.Offset),
					zap.Error(err))
				continue
			}
			if _, err := c.consumer.CommitMessage(e); err != nil {
				c.logger.Warn("kafka commit failed", zap.Any("offset", e.TopicPartition.Offset), zap.Error(err))
			}
		case kafka.Error:
			if e.IsFatal() {
				c.logger.Error("fatal kafka error", zap.Error(e))
				return e
			}
			c.logger.Warn("kafka error", zap.Error(e), zap.Bool("retriable", e.IsRetriable()))
		case kafka.AssignedPartitions:
			c.logger.Info("partitions assigned", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			c.logger.Info("partitions revoked", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Unassign()
		}
	}
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		c.logger.Warn("closing kafka consumer", zap.Error(err))
	}
	c.consumer = nil
}
