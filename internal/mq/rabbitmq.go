package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventhub/apiserver/config"
)

// RabbitMQClient publishes each channel to a fanout exchange of the same
// name. Subscribers bind either the configured shared queue or a private
// transient one, so every watcher sees every change.
type RabbitMQClient struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	queue         string
	queueDurable  bool
	prefetchCount int

	// amqp channels are not safe for concurrent publishes.
	mu       sync.Mutex
	declared map[string]struct{}
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq qos: %w", err)
		}
	}

	return &RabbitMQClient{
		conn:          conn,
		channel:       ch,
		queue:         strings.TrimSpace(cfg.Queue),
		queueDurable:  cfg.QueueDurable,
		prefetchCount: cfg.PrefetchCount,
		declared:      map[string]struct{}{},
	}, nil
}

func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareExchange(channel); err != nil {
		return "", err
	}

	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := newMessageID()
	err := r.channel.PublishWithContext(ctx, channel, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe blocks delivering messages to handler until ctx is done. A
// handler error requeues the message.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	queue, err := r.bindQueue(channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	consumerTag := "consumer-" + newMessageID()
	deliveries, err := r.channel.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", queue, err)
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) declareExchange(name string) error {
	if _, ok := r.declared[name]; ok {
		return nil
	}
	if err := r.channel.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare exchange %s: %w", name, err)
	}
	r.declared[name] = struct{}{}
	return nil
}

// bindQueue declares the subscriber queue and binds it to the channel's
// exchange. Without a configured name the broker names an exclusive queue
// that disappears with the connection.
func (r *RabbitMQClient) bindQueue(channel string) (string, error) {
	if err := r.declareExchange(channel); err != nil {
		return "", err
	}

	var (
		q   amqp.Queue
		err error
	)
	if r.queue != "" {
		q, err = r.channel.QueueDeclare(r.queue, r.queueDurable, !r.queueDurable, false, false, nil)
	} else {
		q, err = r.channel.QueueDeclare("", false, true, true, false, nil)
	}
	if err != nil {
		return "", fmt.Errorf("rabbitmq declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, "", channel, false, nil); err != nil {
		return "", fmt.Errorf("rabbitmq bind %s to %s: %w", q.Name, channel, err)
	}
	return q.Name, nil
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

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
