package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/messaging-service/internal/cache"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
)

func newListingServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/listings/42":
			_, _ = w.Write([]byte(`{"listingId": 42, "sellerId": 7, "title": " Desk Lamp "}`))
		case "/api/listings/abc":
			_, _ = w.Write([]byte(`{"sellerId": "seller-uuid", "title": "Bike"}`))
		case "/api/listings/orphan":
			_, _ = w.Write([]byte(`{"title": "No seller"}`))
		case "/api/listings/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/api/listings/trace":
			_, _ = w.Write([]byte(`{"sellerId": "` + r.Header.Get(log.HeaderRequestID) + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPLookup(t *testing.T) {
	srv := newListingServer(t, nil)
	lookup := NewHTTPLookup(srv.URL+"/api/", time.Second)
	ctx := context.Background()

	t.Run("numeric seller", func(t *testing.T) {
		got, err := lookup.GetListing(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, &domain.Listing{ID: "42", SellerID: "7", Title: "Desk Lamp"}, got)
	})

	t.Run("string seller", func(t *testing.T) {
		got, err := lookup.GetListing(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "seller-uuid", got.SellerID)
		assert.Equal(t, "Bike", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := lookup.GetListing(ctx, "missing")
		assert.ErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("missing seller", func(t *testing.T) {
		_, err := lookup.GetListing(ctx, "orphan")
		assert.ErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("upstream error", func(t *testing.T) {
		_, err := lookup.GetListing(ctx, "broken")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("forwards request id", func(t *testing.T) {
		got, err := lookup.GetListing(log.WithRequestID(ctx, "req-123"), "trace")
		require.NoError(t, err)
		assert.Equal(t, "req-123", got.SellerID)
	})
}

type memoryListingCache struct {
	mu    sync.Mutex
	items map[string]domain.Listing
}

func (m *memoryListingCache) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &l, nil
}

func (m *memoryListingCache) SetListing(_ context.Context, l *domain.Listing, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[l.ID] = *l
	return nil
}

func (m *memoryListingCache) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

func TestCachedLookupServesFromCache(t *testing.T) {
	var hits int32
	srv := newListingServer(t, &hits)
	mem := &memoryListingCache{items: map[string]domain.Listing{}}
	lookup := NewCachedLookup(NewHTTPLookup(srv.URL+"/api", time.Second), mem, time.Minute)
	ctx := context.Background()

	got, err := lookup.GetListing(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "7", got.SellerID)

	require.Eventually(t, func() bool { return mem.has("42") }, time.Second, 10*time.Millisecond)

	got, err = lookup.GetListing(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "7", got.SellerID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCachedLookupDoesNotCacheMisses(t *testing.T) {
	var hits int32
	srv := newListingServer(t, &hits)
	mem := &memoryListingCache{items: map[string]domain.Listing{}}
	lookup := NewCachedLookup(NewHTTPLookup(srv.URL+"/api", time.Second), mem, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := lookup.GetListing(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrListingNotFound)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.False(t, mem.has("missing"))
}
