package cache

import (
	"context"
	"errors"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ConversationCache holds conversation rows keyed by ID. Participants never
// change, so an entry is only dropped when its activity time moves.
type ConversationCache interface {
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	SetConversation(ctx context.Context, conv *domain.Conversation, ttl time.Duration) error
	DeleteConversation(ctx context.Context, id string) error
}

// ListingCache holds listing lookups from the catalog.
type ListingCache interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	SetListing(ctx context.Context, listing *domain.Listing, ttl time.Duration) error
}

// Cache is the full cache surface used by the messaging service.
type Cache interface {
	ConversationCache
	ListingCache
	Close() error
}
