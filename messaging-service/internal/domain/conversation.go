package domain

import "time"

// Conversation is the thread between one buyer and one seller about one listing.
// The (ListingID, BuyerID, SellerID) triple is unique.
type Conversation struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsParticipant reports whether userID is the buyer or the seller.
func (c *Conversation) IsParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// OtherParticipant returns the counterpart of userID, or "" if userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.BuyerID:
		return c.SellerID
	case c.SellerID:
		return c.BuyerID
	default:
		return ""
	}
}

// ConversationResponse is a conversation as seen by one participant.
type ConversationResponse struct {
	ID          string           `json:"id"`
	ListingID   string           `json:"listing_id"`
	BuyerID     string           `json:"buyer_id"`
	SellerID    string           `json:"seller_id"`
	Buyer       *UserSummary     `json:"buyer,omitempty"`
	Seller      *UserSummary     `json:"seller,omitempty"`
	LastMessage *MessageResponse `json:"last_message,omitempty"`
	UnreadCount int64            `json:"unread_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ConversationDetailResponse adds the full ordered message list.
type ConversationDetailResponse struct {
	ConversationResponse
	Messages []MessageResponse `json:"messages"`
}

// ToResponse converts Conversation to ConversationResponse.
func (c *Conversation) ToResponse() ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		ListingID: c.ListingID,
		BuyerID:   c.BuyerID,
		SellerID:  c.SellerID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CountResponse carries the number of rows a mark-read call changed.
type CountResponse struct {
	Count int64 `json:"count"`
}

// UnreadCountResponse carries an unread total.
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}
