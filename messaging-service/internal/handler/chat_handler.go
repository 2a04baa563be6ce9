package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
	"github.com/campusmarket/marketplace/pkg/response"
)

// SendMessageToListing sends the first or next message about a listing.
func (h *Handler) SendMessageToListing(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.SendToListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind send message request")
		response.ValidationError(c, err.Error())
		return
	}

	msg, err := h.messagingService.SendMessageToListing(ctx, userID, &req)
	if err != nil {
		writeServiceError(c, err, "failed to send message")
		return
	}

	response.Created(c, msg)
}

// SendMessage sends a message in an existing conversation.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind send message request")
		response.ValidationError(c, err.Error())
		return
	}

	msg, err := h.messagingService.SendMessage(ctx, c.Param("id"), userID, &req)
	if err != nil {
		writeServiceError(c, err, "failed to send message")
		return
	}

	response.Created(c, msg)
}

// GetUserConversations lists the caller's conversations.
func (h *Handler) GetUserConversations(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	convs, err := h.messagingService.GetUserConversations(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "failed to list conversations")
		return
	}

	response.Success(c, convs)
}

// GetConversation returns one conversation with its messages.
func (h *Handler) GetConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	detail, err := h.messagingService.GetConversation(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeServiceError(c, err, "failed to get conversation")
		return
	}

	response.Success(c, detail)
}

// GetConversationForListing returns the caller's conversation about a listing,
// starting one if needed.
func (h *Handler) GetConversationForListing(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var uri domain.ListingURI
	if err := c.ShouldBindUri(&uri); err != nil {
		l.Warn().Err(err).Msg("invalid listing id")
		response.ValidationError(c, err.Error())
		return
	}

	detail, err := h.messagingService.GetConversationForListing(ctx, uri.ListingID, userID)
	if err != nil {
		writeServiceError(c, err, "failed to get conversation")
		return
	}

	response.Success(c, detail)
}

// GetMessages lists the messages of a conversation.
func (h *Handler) GetMessages(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	msgs, err := h.messagingService.GetMessages(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeServiceError(c, err, "failed to get messages")
		return
	}

	response.Success(c, msgs)
}

// MarkMessagesAsRead marks the other participant's messages as read.
func (h *Handler) MarkMessagesAsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	count, err := h.messagingService.MarkMessagesAsRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeServiceError(c, err, "failed to mark messages as read")
		return
	}

	response.Success(c, domain.CountResponse{Count: count})
}

// MarkMessageAsRead marks one message as read.
func (h *Handler) MarkMessageAsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.messagingService.MarkMessageAsRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		writeServiceError(c, err, "failed to mark message as read")
		return
	}

	response.Success(c, gin.H{"message": "message marked as read"})
}

// GetUnreadCount returns the caller's unread count in one conversation.
func (h *Handler) GetUnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	count, err := h.messagingService.GetUnreadCount(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeServiceError(c, err, "failed to get unread count")
		return
	}

	response.Success(c, domain.UnreadCountResponse{UnreadCount: count})
}

// GetTotalUnreadCount returns the caller's unread count across all conversations.
func (h *Handler) GetTotalUnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	count, err := h.messagingService.GetTotalUnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "failed to get unread count")
		return
	}

	response.Success(c, domain.UnreadCountResponse{UnreadCount: count})
}
