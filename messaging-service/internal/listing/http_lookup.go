package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
)

// maxBodySize caps how much of a listing response is read.
const maxBodySize = 1 << 20

// HTTPLookup reads listings from the listing API.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
}

var _ Lookup = (*HTTPLookup)(nil)

// NewHTTPLookup creates a lookup against baseURL, e.g. http://localhost:8100/api.
// Outbound calls carry the caller's request ID.
func NewHTTPLookup(baseURL string, timeout time.Duration) *HTTPLookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: log.NewTransport(http.DefaultTransport),
		},
	}
}

// listingPayload accepts seller IDs as JSON strings or numbers.
type listingPayload struct {
	SellerID json.RawMessage `json:"sellerId"`
	Title    string          `json:"title"`
}

func (h *HTTPLookup) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	l := log.Ctx(ctx)

	endpoint := fmt.Sprintf("%s/listings/%s", h.baseURL, url.PathEscape(listingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldListingID, listingID).Msg("listing api unreachable")
		return nil, fmt.Errorf("get listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrListingNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.Warn().Int(log.FieldStatus, resp.StatusCode).Str(log.FieldListingID, listingID).Msg("listing api returned error status")
		return nil, fmt.Errorf("get listing: unexpected status %d", resp.StatusCode)
	}

	var payload listingPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	sellerID := rawID(payload.SellerID)
	if sellerID == "" {
		// A listing without a seller cannot be messaged.
		l.Warn().Str(log.FieldListingID, listingID).Msg("listing has no seller")
		return nil, ErrListingNotFound
	}

	return &domain.Listing{
		ID:       listingID,
		SellerID: sellerID,
		Title:    strings.TrimSpace(payload.Title),
	}, nil
}

// rawID renders a JSON string or number as an opaque identifier.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
