package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/marketplace/messaging-service/internal/service"
	"github.com/campusmarket/marketplace/pkg/log"
	"github.com/campusmarket/marketplace/pkg/middleware"
	"github.com/campusmarket/marketplace/pkg/response"
)

// Handler handles HTTP requests for messaging service.
type Handler struct {
	messagingService  service.MessagingService
	preferenceService service.PreferenceService
	authMiddleware    *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	messagingService service.MessagingService,
	preferenceService service.PreferenceService,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		messagingService:  messagingService,
		preferenceService: preferenceService,
		authMiddleware:    authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	chat := r.Group("/chat", h.authMiddleware.RequireAuth())
	{
		chat.POST("/messages", h.SendMessageToListing)
		chat.PUT("/messages/:id/read", h.MarkMessageAsRead)
		chat.GET("/unread-count", h.GetTotalUnreadCount)

		chat.GET("/conversations", h.GetUserConversations)
		chat.GET("/conversations/listing/:listingId", h.GetConversationForListing)
		chat.GET("/conversations/:id", h.GetConversation)
		chat.GET("/conversations/:id/messages", h.GetMessages)
		chat.POST("/conversations/:id/messages", h.SendMessage)
		chat.PUT("/conversations/:id/read", h.MarkMessagesAsRead)
		chat.GET("/conversations/:id/unread-count", h.GetUnreadCount)
	}

	notifications := r.Group("/notifications", h.authMiddleware.RequireAuth())
	{
		notifications.GET("/preferences", h.GetPreferences)
		notifications.PUT("/preferences", h.UpdatePreferences)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireUser returns the authenticated caller, or writes 401.
func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return "", false
	}
	return userID, true
}

// writeServiceError maps service errors onto HTTP responses. Unknown errors
// are logged and reported as 500 with the generic message.
func writeServiceError(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		response.NotFound(c, "conversation not found")
	case errors.Is(err, service.ErrMessageNotFound):
		response.NotFound(c, "message not found")
	case errors.Is(err, service.ErrListingNotFound):
		response.NotFound(c, "listing not found")
	case errors.Is(err, service.ErrNotParticipant):
		response.Forbidden(c, service.ErrNotParticipant.Error())
	case errors.Is(err, service.ErrSelfConversation):
		response.BadRequest(c, service.ErrSelfConversation.Error())
	case errors.Is(err, service.ErrInvalidContent):
		response.ValidationError(c, err.Error())
	case errors.Is(err, service.ErrInvalidPreference):
		response.ValidationError(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldPath, c.FullPath()).Msg(generic)
		response.InternalError(c, generic)
	}
}
