package cache

import (
	"context"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

// NoopCache always misses. It is used when Redis is disabled.
type NoopCache struct{}

var _ Cache = NoopCache{}

func (NoopCache) GetConversation(context.Context, string) (*domain.Conversation, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) SetConversation(context.Context, *domain.Conversation, time.Duration) error {
	return nil
}

func (NoopCache) DeleteConversation(context.Context, string) error { return nil }

func (NoopCache) GetListing(context.Context, string) (*domain.Listing, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) SetListing(context.Context, *domain.Listing, time.Duration) error { return nil }

func (NoopCache) Close() error { return nil }
