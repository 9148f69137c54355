package kafka

import (
	"strings"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

func TestProducerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ProducerConfig
		wantErr string
	}{
		{"valid", ProducerConfig{Brokers: []string{"k1:9092"}}, ""},
		{"no brokers", ProducerConfig{}, "brokers"},
		{"bad acks", ProducerConfig{Brokers: []string{"k1:9092"}, Acks: "most"}, "acks"},
		{"negative linger", ProducerConfig{Brokers: []string{"k1:9092"}, LingerMs: -1}, "cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.MergeDefaults().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProducerConfig_BuildConfigMap(t *testing.T) {
	cfg := (&ProducerConfig{
		Brokers:     []string{"k1:9092", "k2:9092"},
		ClientID:    "cachehost",
		Acks:        "ALL",
		Compression: "LZ4",
	}).MergeDefaults()

	cm := cfg.BuildConfigMap()
	want := map[string]kafka.ConfigValue{
		"bootstrap.servers": "k1:9092,k2:9092",
		"acks":              "all",
		"compression.type":  "lz4",
		"client.id":         "cachehost",
		"batch.size":        100 * 1024,
		"retries":           3,
	}
	for key, v := range want {
		got, err := cm.Get(key, nil)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if got != v {
			t.Errorf("%s = %v, want %v", key, got, v)
		}
	}
}

func TestToKafkaMessage(t *testing.T) {
	topic := "cache-events"
	msg, err := toKafkaMessage(&Message{
		Value:          []byte(`{}`),
		Key:            []byte("prices"),
		TopicPartition: TopicPartition{Topic: &topic, Partition: 4},
		Headers:        []Header{{Key: HeaderSource, Value: []byte("test")}},
	})
	if err != nil {
		t.Fatalf("toKafkaMessage: %v", err)
	}
	if msg.TopicPartition.Partition != 4 || string(msg.Key) != "prices" || len(msg.Headers) != 1 {
		t.Errorf("unexpected message %+v", msg)
	}

	if _, err := toKafkaMessage(&Message{Value: []byte("x")}); err == nil {
		t.Error("expected missing topic to fail")
	}
	if _, err := toKafkaMessage(&Message{TopicPartition: TopicPartition{Topic: &topic}}); err == nil {
		t.Error("expected missing value to fail")
	}
}
