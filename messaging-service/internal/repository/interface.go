package repository

import (
	"context"
	"errors"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists for this listing and participants")
	ErrMessageNotFound      = errors.New("message not found")
	ErrPreferenceNotFound   = errors.New("notification preference not found")
	ErrUserNotFound         = errors.New("user not found")
)

// ConversationRepository defines the interface for conversation persistence.
type ConversationRepository interface {
	// Create inserts a new conversation. It returns ErrConversationExists when
	// the (listing, buyer, seller) triple is already taken.
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByTriple(ctx context.Context, listingID, buyerID, sellerID string) (*domain.Conversation, error)
	// ListByParticipant returns conversations where userID is buyer or seller,
	// most recently active first.
	ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	// Append inserts msg and advances its conversation's updated_at to
	// msg.CreatedAt in one transaction.
	Append(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByConversation returns messages oldest first, ties broken by ID.
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	// LatestByConversations returns the newest message of each conversation that has one.
	LatestByConversations(ctx context.Context, conversationIDs []string) (map[string]domain.Message, error)
	CountUnread(ctx context.Context, conversationID, userID string) (int64, error)
	// CountUnreadByConversations returns per-conversation unread counts for userID.
	// Conversations with no unread messages are absent from the map.
	CountUnreadByConversations(ctx context.Context, conversationIDs []string, userID string) (map[string]int64, error)
	// CountUnreadForUser sums unread messages across every conversation userID takes part in.
	CountUnreadForUser(ctx context.Context, userID string) (int64, error)
	// MarkConversationRead flips unread messages not sent by userID and returns how many changed.
	MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error)
	// MarkRead flips one message if it is unread and not sent by userID.
	MarkRead(ctx context.Context, messageID, userID string) (int64, error)
}

// PreferenceRepository defines the interface for notification preference persistence.
type PreferenceRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Upsert(ctx context.Context, pref *domain.NotificationPreference) error
}

// UserRepository reads marketplace user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error)
}
