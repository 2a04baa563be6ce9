package service

import (
	"context"
	"errors"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/audit"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/listing"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
	"github.com/campusmarket/marketplace/pkg/log"
)

// conversationResolverImpl implements ConversationResolver interface.
type conversationResolverImpl struct {
	repo     repository.ConversationRepository
	listings listing.Lookup
}

// NewConversationResolver creates a new conversation resolver.
func NewConversationResolver(repo repository.ConversationRepository, listings listing.Lookup) ConversationResolver {
	return &conversationResolverImpl{
		repo:     repo,
		listings: listings,
	}
}

// GetOrCreate resolves the seller from the listing and returns the single
// conversation for (listing, buyer, seller). A concurrent insert of the same
// triple loses on the unique index and reads the winner back.
func (r *conversationResolverImpl) GetOrCreate(ctx context.Context, listingID, buyerID string) (*domain.Conversation, bool, error) {
	l := log.Ctx(ctx)

	lst, err := r.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, listing.ErrListingNotFound) {
			return nil, false, ErrListingNotFound
		}
		return nil, false, err
	}
	sellerID := lst.SellerID

	if buyerID == sellerID {
		return nil, false, ErrSelfConversation
	}

	conv, err := r.repo.FindByTriple(ctx, listingID, buyerID, sellerID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	conv = &domain.Conversation{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Create(ctx, conv); err != nil {
		if !errors.Is(err, repository.ErrConversationExists) {
			return nil, false, err
		}

		l.Debug().Str(log.FieldListingID, listingID).Msg("conversation created concurrently, reading winner")
		winner, err := r.repo.FindByTriple(ctx, listingID, buyerID, sellerID)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}

	audit.LogWithDetail(ctx, audit.ActionCreateConversation, buyerID, conv.ID, listingID, "conversation created")
	return conv, true, nil
}
