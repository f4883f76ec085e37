package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind names a mutation on the event graph.
type ChangeKind string

const (
	EventCreated  ChangeKind = "event.created"
	EventUpdated  ChangeKind = "event.updated"
	RoleAssigned  ChangeKind = "role.assigned"
	RoleRevoked   ChangeKind = "role.revoked"
	ProfileEdited ChangeKind = "profile.updated"
)

// Change is the payload published on the change feed.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	EventID string     `json:"eventId,omitempty"`
	UserID  string     `json:"userId,omitempty"`
	Role    string     `json:"role,omitempty"`
	ActorID string     `json:"actorId,omitempty"`
	At      time.Time  `json:"at"`
}

// entityKey groups changes to the same event or user.
func (c Change) entityKey() string {
	switch {
	case c.EventID != "":
		return "event/" + c.EventID
	case c.UserID != "":
		return "user/" + c.UserID
	default:
		return ""
	}
}

// ChangePublisher publishes Change messages to one channel.
type ChangePublisher struct {
	broker  *Broker
	channel string
}

func NewChangePublisher(b *Broker, channel string) *ChangePublisher {
	return &ChangePublisher{broker: b, channel: channel}
}

// PublishChange encodes c and publishes it. A zero At is stamped with now.
func (p *ChangePublisher) PublishChange(ctx context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	attrs := map[string]string{attrKind: string(c.Kind)}
	if key := c.entityKey(); key != "" {
		attrs[AttrOrderingKey] = key
	}
	if _, err := p.broker.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", c.Kind, err)
	}
	return nil
}

// SubscribeChanges decodes every message on the channel and hands it to fn.
// Undecodable messages are acknowledged and dropped.
func (p *ChangePublisher) SubscribeChanges(ctx context.Context, fn func(ctx context.Context, c Change) error) error {
	return p.broker.Subscribe(ctx, p.channel, func(ctx context.Context, msg Message) error {
		c, err := DecodeChange(msg)
		if err != nil {
			return nil
		}
		return fn(ctx, c)
	})
}

// DecodeChange parses a change-feed message.
func DecodeChange(msg Message) (Change, error) {
	var c Change
	if err := json.Unmarshal(msg.Data, &c); err != nil {
		return Change{}, fmt.Errorf("decode change %s: %w", msg.ID, err)
	}
	if c.Kind == "" {
		c.Kind = ChangeKind(msg.Attributes[attrKind])
	}
	return c, nil
}
