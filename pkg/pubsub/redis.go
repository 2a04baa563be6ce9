package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	pkglog "github.com/campusmarket/marketplace/pkg/log"
)

// RedisPubSub is fire-and-forget: events published while no subscriber
// is connected are lost, and every subscriber receives every event.
type RedisPubSub struct {
	client *redis.Client

	mu   sync.Mutex
	subs map[string]*redisSubscription
}

type redisSubscription struct {
	ps   *redis.PubSub
	stop chan struct{}
	done chan struct{}
}

func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis pubsub ping %s: %w", cfg.Address, err)
	}

	return NewRedisPubSubWithClient(client), nil
}

func NewRedisPubSubWithClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client, subs: make(map[string]*redisSubscription)}
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	receivers, err := r.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	if receivers == 0 {
		l := pkglog.Ctx(ctx)
		l.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("redis event published with no subscriber")
	}
	return nil
}

func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	ps := r.client.Subscribe(ctx, channel)
	// Wait for the confirmation so events published after return are seen.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{ps: ps, stop: make(chan struct{}), done: make(chan struct{})}
	r.mu.Lock()
	prev := r.subs[channel]
	r.subs[channel] = sub
	r.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	out := make(chan *Event, streamBuffer)
	go sub.forward(ctx, out)
	return out, nil
}

func (s *redisSubscription) forward(ctx context.Context, out chan<- *Event) {
	defer close(s.done)
	defer close(out)

	l := pkglog.L()
	in := s.ps.Channel(redis.WithChannelSize(streamBuffer))
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			event, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable redis event")
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}
}

func (s *redisSubscription) close() error {
	close(s.stop)
	err := s.ps.Close()
	<-s.done
	return err
}

func (r *RedisPubSub) Unsubscribe(_ context.Context, channel string) error {
	r.mu.Lock()
	sub, ok := r.subs[channel]
	delete(r.subs, channel)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return sub.close()
}

func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]*redisSubscription)
	r.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		errs = append(errs, sub.close())
	}
	errs = append(errs, r.client.Close())
	return errors.Join(errs...)
}
