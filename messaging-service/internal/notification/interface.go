package notification

import (
	"context"
	"errors"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

var (
	ErrQueueFull         = errors.New("notification queue is full")
	ErrDispatcherStopped = errors.New("notification dispatcher is stopped")
)

// Dispatcher hands a sent-message event off for delivery. Implementations
// return without waiting for the notification to be delivered.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *domain.MessageSentEvent) error
}

// Notifier delivers the notification for one event. Failures are handled
// (logged, audited) by the implementation.
type Notifier interface {
	Notify(ctx context.Context, event *domain.MessageSentEvent)
}

// NoopDispatcher drops every event. It is used when notifications are disabled.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(context.Context, *domain.MessageSentEvent) error { return nil }
