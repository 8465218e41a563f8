package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/jobfinder/apiserver/config"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const kafkaTimeout = 10 * time.Second

// KafkaClient publishes to and consumes from Kafka topics. Channels map
// to topic names.
type KafkaClient struct {
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	brokers []string
	groupID string
}

// NewKafkaClient constructs a Kafka client from config.
func NewKafkaClient(cfg config.KafkaConfig) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka group id is required")
	}

	var mechanism sasl.Mechanism
	if cfg.Username != "" {
		mechanism = plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	var tlsConfig *tls.Config
	if cfg.UseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           kafkaTimeout,
		AllowAutoTopicCreation: true,
	}
	if mechanism != nil || tlsConfig != nil {
		writer.Transport = &kafka.Transport{
			SASL: mechanism,
			TLS:  tlsConfig,
		}
	}

	return &KafkaClient{
		writer: writer,
		dialer: &kafka.Dialer{
			Timeout:       kafkaTimeout,
			DualStack:     true,
			TLS:           tlsConfig,
			SASLMechanism: mechanism,
		},
		brokers: cfg.Brokers,
		groupID: cfg.GroupID,
	}, nil
}

// Publish writes a message to the named topic.
func (k *KafkaClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("kafka channel is required")
	}

	messageID := ulid.Make().String()
	headers := make([]kafka.Header, 0, len(attrs))
	for key, value := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   channel,
		Key:     []byte(messageID),
		Value:   data,
		Headers: headers,
		Time:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes the named topic as part of the configured consumer
// group. Offsets are committed only after the handler succeeds.
func (k *KafkaClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("kafka channel is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  k.groupID,
		Topic:    channel,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})
	defer func() {
		_ = reader.Close()
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		message := Message{
			ID:         string(msg.Key),
			Data:       msg.Value,
			Attributes: kafkaHeadersToAttributes(msg.Headers),
		}
		if err := handler(ctx, message); err != nil {
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Close flushes and closes the writer.
func (k *KafkaClient) Close() error {
	return k.writer.Close()
}

func kafkaHeadersToAttributes(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for _, header := range headers {
		attrs[header.Key] = string(header.Value)
	}
	return attrs
}
