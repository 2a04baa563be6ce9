package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
	"github.com/campusmarket/marketplace/pkg/response"
)

// GetPreferences returns the caller's notification preference.
func (h *Handler) GetPreferences(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	pref, err := h.preferenceService.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "failed to get preferences")
		return
	}

	response.Success(c, pref)
}

// UpdatePreferences replaces the caller's notification preference.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind update preferences request")
		response.ValidationError(c, err.Error())
		return
	}

	pref, err := h.preferenceService.UpdatePreferences(ctx, userID, &req)
	if err != nil {
		writeServiceError(c, err, "failed to update preferences")
		return
	}

	response.Success(c, pref)
}
