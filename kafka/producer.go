package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/retry"
	"github.com/dailyyoga/cacheorch/routine"
	"go.uber.org/zap"
)

type defaultProducer struct {
	logger logger.Logger
	runner routine.Runner

	p *kafka.Producer

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewProducer validates the cluster and creates a new kafka producer
func NewProducer(ctx context.Context, log logger.Logger, config *ProducerConfig) (Producer, error) {
	if config == nil {
		config = DefaultProducerConfig()
	} else {
		config = config.MergeDefaults()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := validateKafkaCluster(ctx, log, config.Brokers); err != nil {
		return nil, err
	}

	configMap := config.BuildConfigMap()

	var producer *kafka.Producer
	attempts, err := retry.Do(ctx, connectPolicy, func(context.Context) error {
		var err error
		producer, err = kafka.NewProducer(configMap)
		return err
	}, func(attempt int, err error, delay time.Duration) {
		log.Warn("failed to create kafka producer, retrying...",
			zap.Error(err),
			zap.Int("attempt", attempt),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer after %d attempts: %w", attempts, err)
	}

	kp := &defaultProducer{
		p:      producer,
		logger: log,
		runner: routine.New(log),
		done:   make(chan struct{}),
	}
	kp.runner.GoNamed("kafka-delivery-reports", kp.handleDeliveryReports)

	log.Info("kafka producer initialized and validated", zap.Strings("brokers", config.Brokers))
	return kp, nil
}

// handleDeliveryReports handles the delivery reports from the kafka producer
func (kp *defaultProducer) handleDeliveryReports() {
	for {
		select {
		case <-kp.done:
			return
		case e := <-kp.p.Events():
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					kp.logger.Error("failed to deliver message",
						zap.Error(ev.TopicPartition.Error),
						zap.String("topic", *ev.TopicPartition.Topic),
						zap.ByteString("key", ev.Key),
					)
				} else {
					kp.logger.Debug("message delivered",
						zap.String("topic", *ev.TopicPartition.Topic),
						zap.Int32("partition", ev.TopicPartition.Partition),
						zap.Int64("offset", int64(ev.TopicPartition.Offset)),
					)
				}
			case kafka.Error:
				kp.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
				if ev.Code() == kafka.ErrAllBrokersDown {
					kp.logger.Error("all kafka brokers are down", zap.Error(ev))
				}
			default:
				kp.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Produce enqueues a message for the kafka topic
func (kp *defaultProducer) Produce(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message, err := toKafkaMessage(msg)
	if err != nil {
		return err
	}

	kp.mu.RLock()
	defer kp.mu.RUnlock()
	if kp.closed {
		return ErrProducerClosed
	}
	if err := kp.p.Produce(message, nil); err != nil {
		return ErrProduce(*message.TopicPartition.Topic, err)
	}
	return nil
}

func toKafkaMessage(msg *Message) (*kafka.Message, error) {
	if msg.TopicPartition.Topic == nil || *msg.TopicPartition.Topic == "" {
		return nil, ErrInvalidConfig("topic is required")
	}
	if msg.Value == nil {
		return nil, ErrInvalidConfig("value is required")
	}

	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: kafka.PartitionAny,
		},
		Value:     msg.Value,
		Key:       msg.Key,
		Timestamp: msg.Timestamp,
	}
	if msg.TopicPartition.Partition != PartitionAny {
		message.TopicPartition.Partition = msg.TopicPartition.Partition
	}
	for _, header := range msg.Headers {
		message.Headers = append(message.Headers, kafka.Header{Key: header.Key, Value: header.Value})
	}
	return message, nil
}

// Close flushes pending messages and closes the kafka producer
func (kp *defaultProducer) Close() error {
	kp.closeOnce.Do(func() {
		kp.mu.Lock()
		kp.closed = true
		kp.mu.Unlock()

		close(kp.done)
		kp.runner.Wait()

		remaining := kp.p.Flush(10000) // 10 seconds
		if remaining > 0 {
			kp.logger.Warn("producer closed with undelivered messages", zap.Int("remaining", remaining))
		}

		kp.p.Close()
	})
	return nil
}
