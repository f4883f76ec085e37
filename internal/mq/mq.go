package mq

import (
	"context"
	"errors"
	"strings"
)

// Message attributes understood by every backend.
const (
	// AttrOrderingKey groups messages that must be delivered in publish
	// order. Pub/Sub uses it as the ordering key; RabbitMQ keeps it as a
	// header since a single queue is already ordered.
	AttrOrderingKey = "key"

	// attrKind carries the change kind so consumers can filter without
	// decoding the body.
	attrKind = "kind"
)

var errNoChannel = errors.New("mq channel is required")

// Message is one delivery from a change-feed channel.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivery. A non-nil error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend moves change-feed messages over a broker.
//
// Publish must deliver to every subscriber of channel, not to one of them:
// RabbitMQ fans out through an exchange named after the channel and Pub/Sub
// through a topic. Subscribe blocks until ctx is done or the handler's
// subscription fails.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Broker is the process-wide handle on the configured Backend.
type Broker struct {
	backend Backend
}

func NewBroker(backend Backend) *Broker {
	return &Broker{backend: backend}
}

// Publish sends data to every subscriber of channel. Messages sharing an
// AttrOrderingKey attribute arrive in the order they were published.
func (b *Broker) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errNoChannel
	}
	return b.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe hands every message published on channel to handler until ctx
// is cancelled.
func (b *Broker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errNoChannel
	}
	return b.backend.Subscribe(ctx, channel, handler)
}

func (b *Broker) Close() error {
	return b.backend.Close()
}
