package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/eventhub/apiserver/config"
)

// PubSubClient maps channels to topics and subscribers to one subscription
// per channel.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}
	return &PubSubClient{
		client:             client,
		subscriptionSuffix: suffix,
		topics:             map[string]*pubsub.Topic{},
	}, nil
}

func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}

	topic, err := p.topic(ctx, channel)
	if err != nil {
		return "", err
	}
	orderingKey := attrs[AttrOrderingKey]
	id, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs, OrderingKey: orderingKey}).Get(ctx)
	if err != nil && orderingKey != "" {
		// A failed ordered publish pauses its key until resumed.
		topic.ResumePublish(orderingKey)
	}
	return id, err
}

func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}

	topic, err := p.topic(ctx, channel)
	if err != nil {
		return err
	}
	sub, err := p.subscription(ctx, channel+p.subscriptionSuffix, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		message := Message{
			ID:         msg.ID,
			Data:       msg.Data,
			Attributes: msg.Attributes,
		}
		if err := handler(ctx, message); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes and closes the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, topic := range p.topics {
		topic.Stop()
	}
	p.topics = map[string]*pubsub.Topic{}
	p.mu.Unlock()
	return p.client.Close()
}

// topic returns the cached topic handle, creating the topic on first use.
func (p *PubSubClient) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if topic, ok := p.topics[name]; ok {
		return topic, nil
	}

	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("pubsub topic %s: %w", name, err)
	}
	if !exists {
		if topic, err = p.client.CreateTopic(ctx, name); err != nil {
			return nil, fmt.Errorf("pubsub create topic %s: %w", name, err)
		}
	}
	topic.EnableMessageOrdering = true
	p.topics[name] = topic
	return topic, nil
}

func (p *PubSubClient) subscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("pubsub subscription %s: %w", name, err)
	}
	if exists {
		return sub, nil
	}
	sub, err = p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
		Topic:                 topic,
		EnableMessageOrdering: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pubsub create subscription %s: %w", name, err)
	}
	return sub, nil
}
