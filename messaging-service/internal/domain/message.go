package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the longest message body accepted, in characters.
const MaxContentLength = 5000

var (
	ErrEmptyContent   = errors.New("message content is required")
	ErrContentTooLong = errors.New("message must be between 1 and 5000 characters")
)

// Message is one entry in a conversation. Only IsRead changes after creation,
// and only from false to true.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsFromSender reports whether userID wrote the message.
func (m *Message) IsFromSender(userID string) bool {
	return m.SenderID == userID
}

// ValidateContent checks the 1..MaxContentLength bound. Whitespace-only
// content counts as empty.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// SendToListingRequest starts or continues the caller's conversation about a listing.
type SendToListingRequest struct {
	ListingID string `json:"listing_id" binding:"required,max=64"`
	Content   string `json:"content"`
}

// ListingURI is the listing path parameter of the per-listing routes.
// It carries the same bound as SendToListingRequest.ListingID.
type ListingURI struct {
	ListingID string `uri:"listingId" binding:"required,max=64"`
}

// SendMessageRequest posts into an existing conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToResponse converts Message to MessageResponse.
func (m *Message) ToResponse(senderName string) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     senderName,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}
