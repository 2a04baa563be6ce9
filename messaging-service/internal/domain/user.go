package domain

import "strings"

// UserProfile is the read-only account data the messaging core needs.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"-"`
}

// DisplayName is "First Last" when both are set, then the username, then fallback.
func (u *UserProfile) DisplayName(fallback string) string {
	if u == nil {
		return fallback
	}
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	if first != "" && last != "" {
		return first + " " + last
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return fallback
}

// UserSummary is the public part of a profile.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ToSummary converts UserProfile to UserSummary.
func (u *UserProfile) ToSummary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
