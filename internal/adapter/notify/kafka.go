package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

const (
	defaultTopic           = "review-gateway.notifications"
	defaultDeliveryTimeout = 10 * time.Second
)

// KafkaSink mirrors notifications to a Kafka topic. Messages are keyed by
// repository so per-repo ordering holds across partitions.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	timeout  time.Duration
}

// KafkaConfig configures the sink.
type KafkaConfig struct {
	BootstrapServers string
	Topic            string
	DeliveryTimeout  time.Duration
}

// NewKafkaSink connects a producer to the cluster.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if cfg.BootstrapServers == "" {
		return nil, fmt.Errorf("notify: kafka bootstrap servers are required")
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
	})
	if err != nil {
		return nil, fmt.Errorf("notify: creating kafka producer: %w", err)
	}

	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &KafkaSink{producer: producer, topic: topic, timeout: timeout}, nil
}

// Publish produces one notification and waits for the delivery report.
func (s *KafkaSink) Publish(n orchestrate.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &s.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(n.Owner + "/" + n.Repo),
		Value: payload,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("producing notification: %w", err)
	}

	select {
	case e := <-deliveryChan:
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("delivering notification: %w", m.TopicPartition.Error)
		}
		return nil
	case <-time.After(s.timeout):
		return fmt.Errorf("notification delivery timed out after %s", s.timeout)
	}
}

// Close flushes outstanding messages and releases the producer.
func (s *KafkaSink) Close() {
	s.producer.Flush(int(s.timeout.Milliseconds()))
	s.producer.Close()
}
