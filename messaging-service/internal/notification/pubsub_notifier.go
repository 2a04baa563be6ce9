package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
	"github.com/campusmarket/marketplace/pkg/pubsub"
)

// PubSubNotifier publishes events to the event bus for a Consumer to deliver.
// Events are keyed by conversation so one conversation's notifications stay ordered.
// It runs behind an AsyncDispatcher, so a slow broker never holds up a send.
type PubSubNotifier struct {
	publisher      pubsub.Publisher
	channel        string
	publishTimeout time.Duration
}

var _ Notifier = (*PubSubNotifier)(nil)

func NewPubSubNotifier(publisher pubsub.Publisher, channel string) *PubSubNotifier {
	if channel == "" {
		channel = pubsub.ChannelChatNotifications
	}
	return &PubSubNotifier{
		publisher:      publisher,
		channel:        channel,
		publishTimeout: 3 * time.Second,
	}
}

// Notify publishes the event and logs a failure.
func (n *PubSubNotifier) Notify(ctx context.Context, event *domain.MessageSentEvent) {
	if err := n.Publish(ctx, event); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str("channel", n.channel).
			Str(log.FieldConversationID, event.ConversationID).
			Str(log.FieldMessageID, event.MessageID).
			Msg("failed to publish notification event")
	}
}

// Publish wraps the event in an envelope and waits for the bus to accept it.
func (n *PubSubNotifier) Publish(ctx context.Context, event *domain.MessageSentEvent) error {
	evt, err := pubsub.NewEvent(pubsub.EventMessageSent, event.ConversationID, event)
	if err != nil {
		return fmt.Errorf("build notification event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, n.publishTimeout)
	defer cancel()

	if err := n.publisher.Publish(pubCtx, n.channel, evt); err != nil {
		return fmt.Errorf("publish notification event: %w", err)
	}

	l := log.Ctx(ctx)
	l.Debug().
		Str("channel", n.channel).
		Str(log.FieldConversationID, event.ConversationID).
		Str(log.FieldMessageID, event.MessageID).
		Msg("notification event published")
	return nil
}
