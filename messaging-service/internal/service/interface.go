package service

import (
	"context"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

// ConversationResolver finds or creates the conversation between a buyer and
// the seller of a listing.
type ConversationResolver interface {
	// GetOrCreate returns the conversation and whether this call created it.
	GetOrCreate(ctx context.Context, listingID, buyerID string) (*domain.Conversation, bool, error)
}

// MessagingService defines the interface for buyer-seller messaging.
type MessagingService interface {
	SendMessage(ctx context.Context, conversationID, senderID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error)
	SendMessageToListing(ctx context.Context, buyerID string, req *domain.SendToListingRequest) (*domain.MessageResponse, error)
	GetMessages(ctx context.Context, conversationID, userID string) ([]domain.MessageResponse, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*domain.ConversationDetailResponse, error)
	GetConversationForListing(ctx context.Context, listingID, userID string) (*domain.ConversationDetailResponse, error)
	GetUserConversations(ctx context.Context, userID string) ([]domain.ConversationResponse, error)
	GetUnreadCount(ctx context.Context, conversationID, userID string) (int64, error)
	GetTotalUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkMessagesAsRead(ctx context.Context, conversationID, userID string) (int64, error)
	MarkMessageAsRead(ctx context.Context, messageID, userID string) error
}

// PreferenceService defines the interface for notification preferences.
type PreferenceService interface {
	GetPreferences(ctx context.Context, userID string) (*domain.PreferenceResponse, error)
	UpdatePreferences(ctx context.Context, userID string, req *domain.UpdatePreferenceRequest) (*domain.PreferenceResponse, error)
}
