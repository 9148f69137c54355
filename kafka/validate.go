package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/retry"
	"go.uber.org/zap"
)

// connectPolicy governs client construction and cluster validation
var connectPolicy retry.Policy = retry.Fixed{MaxAttempts: 3, Delay: 2 * time.Second}

// validateKafkaCluster validates the kafka cluster connection
func validateKafkaCluster(ctx context.Context, log logger.Logger, brokers []string) error {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": 10000, // 10s
	}

	var adminClient *kafka.AdminClient
	_, err := retry.Do(ctx, connectPolicy, func(context.Context) error {
		var err error
		adminClient, err = kafka.NewAdminClient(configMap)
		return err
	}, func(attempt int, err error, delay time.Duration) {
		log.Warn("failed to create kafka admin client, retrying...",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
	})
	if err != nil {
		return ErrConnection(err)
	}
	defer adminClient.Close()

	// try to get cluster metadata to verify connection
	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if _, err := adminClient.GetMetadata(nil, false, int(timeout.Milliseconds())); err != nil {
		return ErrConnection(err)
	}

	log.Info("kafka brokers connection validated", zap.Strings("brokers", brokers))
	return nil
}
