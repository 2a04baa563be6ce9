package service

import (
	"context"
	"errors"
	"strings"

	"github.com/campusmarket/marketplace/messaging-service/internal/audit"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
)

// preferenceServiceImpl implements PreferenceService interface.
type preferenceServiceImpl struct {
	repo repository.PreferenceRepository
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(repo repository.PreferenceRepository) PreferenceService {
	return &preferenceServiceImpl{repo: repo}
}

// GetPreferences returns the stored preference, or the defaults when the user
// never saved one.
func (s *preferenceServiceImpl) GetPreferences(ctx context.Context, userID string) (*domain.PreferenceResponse, error) {
	pref, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrPreferenceNotFound) {
			return nil, err
		}
		pref = domain.DefaultPreference(userID)
	}

	resp := pref.ToResponse()
	return &resp, nil
}

// UpdatePreferences replaces the caller's preference, creating it if needed.
// Blank overrides are stored empty and fall back to the profile at send time.
func (s *preferenceServiceImpl) UpdatePreferences(ctx context.Context, userID string, req *domain.UpdatePreferenceRequest) (*domain.PreferenceResponse, error) {
	if req.EmailNotificationsEnabled == nil {
		return nil, ErrInvalidPreference
	}

	pref := &domain.NotificationPreference{
		UserID:                    userID,
		EmailNotificationsEnabled: *req.EmailNotificationsEnabled,
		Email:                     strings.TrimSpace(req.Email),
		FirstName:                 strings.TrimSpace(req.FirstName),
	}

	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, err
	}

	detail := "disabled"
	if pref.EmailNotificationsEnabled {
		detail = "enabled"
	}
	audit.LogWithDetail(ctx, audit.ActionUpdatePreference, userID, userID, detail, "notification preference updated")

	resp := pref.ToResponse()
	return &resp, nil
}
