package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jobfinder/apiserver/config"
	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"
)

const rabbitAppID = "jobfinder"

// RabbitMQClient publishes to and consumes from RabbitMQ work queues.
// Publishes share one channel; every subscription opens its own.
type RabbitMQClient struct {
	conn *amqp.Connection
	cfg  config.RabbitMQConfig

	mu       sync.Mutex
	pub      *amqp.Channel
	declared map[string]struct{}
}

// NewRabbitMQClient dials the broker and opens the publishing channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	return &RabbitMQClient{
		conn:     conn,
		cfg:      cfg,
		pub:      pub,
		declared: make(map[string]struct{}),
	}, nil
}

// Publish sends data to the queue named channel. Messages on durable
// queues are marked persistent.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}

	msg := amqp.Publishing{
		AppId:       rabbitAppID,
		MessageId:   ulid.Make().String(),
		Timestamp:   time.Now().UTC(),
		ContentType: contentType(attrs),
		Headers:     headers,
		Body:        data,
	}
	if r.cfg.QueueDurable {
		msg.DeliveryMode = amqp.Persistent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declare(r.pub, channel); err != nil {
		return "", err
	}
	if err := r.pub.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe consumes the queue named channel until ctx is cancelled. A
// message whose handler fails is requeued once and dropped on the second
// failure.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}
	if _, err := r.queue(ch, channel); err != nil {
		return err
	}

	consumer := rabbitAppID + "-" + strings.ToLower(ulid.Make().String())
	deliveries, err := ch.Consume(channel, consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumer, false)
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, msg); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publishing channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pub != nil {
		_ = r.pub.Close()
		r.pub = nil
	}
	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}

// declare declares name on ch once per client. Callers hold r.mu.
func (r *RabbitMQClient) declare(ch *amqp.Channel, name string) error {
	if _, ok := r.declared[name]; ok {
		return nil
	}
	if _, err := r.queue(ch, name); err != nil {
		return err
	}
	r.declared[name] = struct{}{}
	return nil
}

func (r *RabbitMQClient) queue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

func contentType(attrs map[string]string) string {
	if value := attrs[AttrContentType]; value != "" {
		return value
	}
	return "application/octet-stream"
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
