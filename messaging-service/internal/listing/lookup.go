package listing

import (
	"context"
	"errors"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

var ErrListingNotFound = errors.New("listing not found")

// Lookup resolves a listing to its seller and title.
type Lookup interface {
	GetListing(ctx context.Context, listingID string) (*domain.Listing, error)
}
