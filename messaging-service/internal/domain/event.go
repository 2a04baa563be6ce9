package domain

import "time"

// MessageSentEvent is handed to the notification path after a send commits.
// It carries everything needed to notify without reloading the conversation.
type MessageSentEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	ListingID      string    `json:"listing_id"`
	BuyerID        string    `json:"buyer_id"`
	SellerID       string    `json:"seller_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

// NewMessageSentEvent builds the event for msg in conv.
func NewMessageSentEvent(conv *Conversation, msg *Message) *MessageSentEvent {
	return &MessageSentEvent{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		ListingID:      conv.ListingID,
		BuyerID:        conv.BuyerID,
		SellerID:       conv.SellerID,
		SenderID:       msg.SenderID,
		RecipientID:    conv.OtherParticipant(msg.SenderID),
		Content:        msg.Content,
		SentAt:         msg.CreatedAt,
	}
}
