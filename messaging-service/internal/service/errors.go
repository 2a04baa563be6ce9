package service

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrListingNotFound      = errors.New("listing not found")
	ErrNotParticipant       = errors.New("you are not a participant in this conversation")
	ErrSelfConversation     = errors.New("you cannot message your own listing")
	ErrInvalidContent       = errors.New("invalid message content")
	ErrInvalidPreference    = errors.New("email_notifications_enabled is required")
)
