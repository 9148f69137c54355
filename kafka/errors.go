package kafka

import "fmt"

var (
	// ErrProducerClosed produce after close
	ErrProducerClosed = fmt.Errorf("kafka: producer is closed")
)

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("kafka: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrProduce enqueue message error
func ErrProduce(topic string, err error) error {
	return fmt.Errorf("kafka: produce to topic %s failed: %w", topic, err)
}

// ErrEncodeEvent event serialization error
func ErrEncodeEvent(err error) error {
	return fmt.Errorf("kafka: encode event failed: %w", err)
}
