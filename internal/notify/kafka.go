package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"dinewire/internal/config"
	"dinewire/internal/domain"
)

// KafkaSink streams every bus event to a Kafka topic for downstream
// analytics. It is a plain bus subscriber: a broker outage degrades to
// logged errors and never touches the order flow.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // required for SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(strings.Split(cfg.BrokerList, ","), saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaSink{producer: producer, topic: cfg.Topic}, nil
}

func (k *KafkaSink) Name() string { return "kafka-activity-stream" }

func (k *KafkaSink) Handle(_ context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.Name),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaSink) Close() error { return k.producer.Close() }
