package pubsub

import (
	"context"
	"fmt"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber delivers events from one channel. The returned stream is
// closed after Unsubscribe, Close, or cancellation of ctx.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	Unsubscribe(ctx context.Context, channel string) error
}

type PubSub interface {
	Publisher
	Subscriber
	Close() error
}

const (
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// NewPubSub connects the broker named by cfg.Driver.
func NewPubSub(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case DriverKafka:
		return NewKafkaPubSub(cfg.Kafka)
	case DriverRedis:
		return NewRedisPubSub(cfg.Redis)
	default:
		return nil, fmt.Errorf("pubsub: unknown driver %q", cfg.Driver)
	}
}

// streamBuffer bounds how many undelivered events a subscription holds.
const streamBuffer = 64
