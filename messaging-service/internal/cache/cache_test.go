package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

func TestRedisCacheKeys(t *testing.T) {
	c := NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "messaging")
	defer c.Close()

	assert.Equal(t, "messaging:conversation:abc", c.conversationKey("abc"))
	assert.Equal(t, "messaging:listing:42", c.listingKey("42"))
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c Cache = NoopCache{}
	ctx := context.Background()

	require.NoError(t, c.SetConversation(ctx, &domain.Conversation{ID: "c1"}, 0))
	_, err := c.GetConversation(ctx, "c1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetListing(ctx, &domain.Listing{ID: "l1"}, 0))
	_, err = c.GetListing(ctx, "l1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, c.DeleteConversation(ctx, "c1"))
	assert.NoError(t, c.Close())
}
