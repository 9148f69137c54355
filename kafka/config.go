package kafka

import (
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ProducerConfig is the configuration for kafka producer
type ProducerConfig struct {
	// kafka cluster brokers
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`

	// Optional: kafka client id, shown in broker logs and metrics
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// Acks is the number of broker confirmations required before a message counts as committed.
	// - all or -1: wait for every in-sync replica
	// - 1: leader only
	// - 0: fire and forget
	// default: "all"
	Acks string `mapstructure:"acks" yaml:"acks"`

	// Compression codec: none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression" yaml:"compression"`

	// LingerMs batch sending wait time (milliseconds)
	// default: 0 (no wait, send immediately)
	LingerMs int `mapstructure:"linger_ms" yaml:"linger_ms"`

	// BatchSize maximum bytes per batch
	// default: 100KB
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Security protocol: "PLAINTEXT", "SASL_PLAINTEXT", "SASL_SSL"
	// only support PLAINTEXT for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" yaml:"security_protocol"`

	// Max retries for kafka producer
	// default: 3
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Acks:             "all",
		Compression:      "none",
		LingerMs:         0,
		BatchSize:        100 * 1024, // 100KB
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
	}
}

// MergeDefaults fills zero-valued fields from DefaultProducerConfig and returns p
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	defaults := DefaultProducerConfig()
	if p.Acks == "" {
		p.Acks = defaults.Acks
	}
	if p.Compression == "" {
		p.Compression = defaults.Compression
	}
	if p.BatchSize == 0 {
		p.BatchSize = defaults.BatchSize
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = defaults.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = defaults.MaxRetries
	}
	return p
}

func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	switch strings.ToLower(p.Acks) {
	case "all", "-1", "0", "1":
	default:
		return ErrInvalidConfig("acks must be one of all, -1, 0, 1")
	}
	if p.LingerMs < 0 || p.BatchSize < 0 || p.MaxRetries < 0 {
		return ErrInvalidConfig("linger_ms, batch_size and max_retries cannot be negative")
	}
	return nil
}

func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"batch.size":        p.BatchSize,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}

	if p.ClientID != "" {
		_ = configMap.SetKey("client.id", p.ClientID)
	}

	return configMap
}

// NotifierConfig is the configuration for EventNotifier
type NotifierConfig struct {
	// Topic receives one message per cache status transition
	Topic string `mapstructure:"topic" yaml:"topic"`
	// Source identifies the emitting host in the message headers
	// default: "cacheorch"
	Source string `mapstructure:"source" yaml:"source"`
}

func (c *NotifierConfig) Validate() error {
	if c.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	return nil
}
