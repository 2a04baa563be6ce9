package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
	"github.com/campusmarket/marketplace/pkg/pubsub"
)

// Consumer reads sent-message events from the event bus and runs the Notifier
// for each, one at a time.
type Consumer struct {
	subscriber pubsub.Subscriber
	channel    string
	notifier   Notifier
	timeout    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

func NewConsumer(subscriber pubsub.Subscriber, channel string, notifier Notifier, timeout time.Duration) *Consumer {
	if channel == "" {
		channel = pubsub.ChannelChatNotifications
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Consumer{
		subscriber: subscriber,
		channel:    channel,
		notifier:   notifier,
		timeout:    timeout,
		doneCh:     make(chan struct{}),
	}
}

// Start subscribes and begins consuming in the background.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("consumer already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := c.subscriber.Subscribe(runCtx, c.channel)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to %s: %w", c.channel, err)
	}
	c.cancel = cancel

	go c.run(runCtx, events)

	l := log.L()
	l.Info().Str("channel", c.channel).Msg("notification consumer started")
	return nil
}

func (c *Consumer) run(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(c.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.handle(ctx, evt)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, evt *pubsub.Event) {
	l := log.L()
	if evt.Type != pubsub.EventMessageSent {
		l.Debug().Str("type", evt.Type).Msg("ignoring event")
		return
	}

	var event domain.MessageSentEvent
	if err := evt.Decode(&event); err != nil {
		l.Warn().Err(err).Str("event_id", evt.ID).Str("key", evt.Key).Msg("failed to unmarshal notification event")
		return // skip malformed events
	}

	logger := l.With().
		Str(log.FieldConversationID, event.ConversationID).
		Str(log.FieldMessageID, event.MessageID).
		Logger()
	notifyCtx, cancel := context.WithTimeout(log.WithLogger(context.WithoutCancel(ctx), logger), c.timeout)
	defer cancel()

	c.notifier.Notify(notifyCtx, &event)
}

// Close stops consuming and waits for the in-flight event to finish.
func (c *Consumer) Close(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}

	if err := c.subscriber.Unsubscribe(ctx, c.channel); err != nil {
		l := log.L()
		l.Warn().Err(err).Str("channel", c.channel).Msg("unsubscribe failed")
	}
	cancel()

	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the consume loop exits.
func (c *Consumer) Done() <-chan struct{} {
	return c.doneCh
}
