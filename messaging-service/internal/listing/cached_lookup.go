package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campusmarket/marketplace/messaging-service/internal/cache"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
)

// CachedLookup fronts another Lookup with a cache. Concurrent misses for the
// same listing share one upstream call.
type CachedLookup struct {
	next  Lookup
	cache cache.ListingCache
	ttl   time.Duration
	sf    singleflight.Group
}

var _ Lookup = (*CachedLookup)(nil)

func NewCachedLookup(next Lookup, listingCache cache.ListingCache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: listingCache, ttl: ttl}
}

func (c *CachedLookup) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	result, err, _ := c.sf.Do(listingID, func() (interface{}, error) {
		return c.fetchWithCache(ctx, listingID)
	})
	if err != nil {
		return nil, err
	}

	listing, ok := result.(*domain.Listing)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	copied := *listing
	return &copied, nil
}

func (c *CachedLookup) fetchWithCache(ctx context.Context, listingID string) (*domain.Listing, error) {
	cached, err := c.cache.GetListing(ctx, listingID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldListingID, listingID).Msg("listing cache get error")
	}

	listing, err := c.next.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.cache.SetListing(cacheCtx, listing, c.ttl); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldListingID, listingID).Msg("listing cache set error")
		}
	}()

	return listing, nil
}
