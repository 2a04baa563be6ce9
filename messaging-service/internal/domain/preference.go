package domain

import (
	"strings"
	"time"
)

// NotificationPreference is a user's explicit email settings. A missing
// record means notifications are enabled with profile defaults.
type NotificationPreference struct {
	UserID                    string    `json:"user_id"`
	EmailNotificationsEnabled bool      `json:"email_notifications_enabled"`
	Email                     string    `json:"email,omitempty"`
	FirstName                 string    `json:"first_name,omitempty"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// DefaultPreference is the value reported for users without a record.
func DefaultPreference(userID string) *NotificationPreference {
	return &NotificationPreference{
		UserID:                    userID,
		EmailNotificationsEnabled: true,
	}
}

// EffectiveSettings is the fully resolved delivery configuration for one recipient.
type EffectiveSettings struct {
	Enabled   bool
	Email     string
	FirstName string
}

// ResolveEffectiveSettings merges a preference (may be nil) over a profile
// (may be nil). Non-blank overrides win; blanks fall back to the profile.
func ResolveEffectiveSettings(pref *NotificationPreference, profile *UserProfile) EffectiveSettings {
	s := EffectiveSettings{Enabled: true}
	if profile != nil {
		s.Email = strings.TrimSpace(profile.Email)
		s.FirstName = strings.TrimSpace(profile.FirstName)
	}
	if pref == nil {
		return s
	}

	s.Enabled = pref.EmailNotificationsEnabled
	if email := strings.TrimSpace(pref.Email); email != "" {
		s.Email = email
	}
	if name := strings.TrimSpace(pref.FirstName); name != "" {
		s.FirstName = name
	}
	return s
}

// UpdatePreferenceRequest replaces the caller's preference record.
type UpdatePreferenceRequest struct {
	EmailNotificationsEnabled *bool  `json:"email_notifications_enabled" binding:"required"`
	Email                     string `json:"email" binding:"omitempty,email,max=255"`
	FirstName                 string `json:"first_name" binding:"omitempty,max=100"`
}

// PreferenceResponse represents a preference in API responses.
type PreferenceResponse struct {
	UserID                    string `json:"user_id"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	Email                     string `json:"email,omitempty"`
	FirstName                 string `json:"first_name,omitempty"`
}

// ToResponse converts NotificationPreference to PreferenceResponse.
func (p *NotificationPreference) ToResponse() PreferenceResponse {
	return PreferenceResponse{
		UserID:                    p.UserID,
		EmailNotificationsEnabled: p.EmailNotificationsEnabled,
		Email:                     p.Email,
		FirstName:                 p.FirstName,
	}
}
