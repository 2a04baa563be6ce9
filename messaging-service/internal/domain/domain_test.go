package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateContent(t *testing.T) {
	assert.ErrorIs(t, ValidateContent(""), ErrEmptyContent)
	assert.ErrorIs(t, ValidateContent("   \n\t"), ErrEmptyContent)
	assert.NoError(t, ValidateContent("Is this available?"))
	assert.NoError(t, ValidateContent(strings.Repeat("a", MaxContentLength)))
	assert.ErrorIs(t, ValidateContent(strings.Repeat("a", MaxContentLength+1)), ErrContentTooLong)

	// Length is counted in characters, not bytes.
	assert.NoError(t, ValidateContent(strings.Repeat("é", MaxContentLength)))
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{BuyerID: "b", SellerID: "s"}

	assert.True(t, c.IsParticipant("b"))
	assert.True(t, c.IsParticipant("s"))
	assert.False(t, c.IsParticipant("x"))
	assert.False(t, c.IsParticipant(""))

	assert.Equal(t, "s", c.OtherParticipant("b"))
	assert.Equal(t, "b", c.OtherParticipant("s"))
	assert.Equal(t, "", c.OtherParticipant("x"))
}

func TestResolveEffectiveSettings(t *testing.T) {
	profile := &UserProfile{ID: "u", FirstName: "Ada", Email: "ada@uni.edu"}

	t.Run("no preference uses profile and is enabled", func(t *testing.T) {
		s := ResolveEffectiveSettings(nil, profile)
		assert.Equal(t, EffectiveSettings{Enabled: true, Email: "ada@uni.edu", FirstName: "Ada"}, s)
	})

	t.Run("overrides win when non-blank", func(t *testing.T) {
		pref := &NotificationPreference{EmailNotificationsEnabled: true, Email: "alt@mail.com", FirstName: "A"}
		s := ResolveEffectiveSettings(pref, profile)
		assert.Equal(t, "alt@mail.com", s.Email)
		assert.Equal(t, "A", s.FirstName)
	})

	t.Run("blank overrides fall back", func(t *testing.T) {
		pref := &NotificationPreference{EmailNotificationsEnabled: true, Email: "  ", FirstName: ""}
		s := ResolveEffectiveSettings(pref, profile)
		assert.Equal(t, "ada@uni.edu", s.Email)
		assert.Equal(t, "Ada", s.FirstName)
	})

	t.Run("disabled preference", func(t *testing.T) {
		s := ResolveEffectiveSettings(&NotificationPreference{EmailNotificationsEnabled: false}, profile)
		assert.False(t, s.Enabled)
	})

	t.Run("nothing known", func(t *testing.T) {
		s := ResolveEffectiveSettings(nil, nil)
		assert.True(t, s.Enabled)
		assert.Empty(t, s.Email)
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&UserProfile{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}).DisplayName("Someone"))
	assert.Equal(t, "ada", (&UserProfile{FirstName: "Ada", Username: "ada"}).DisplayName("Someone"))
	assert.Equal(t, "Someone", (&UserProfile{}).DisplayName("Someone"))

	var missing *UserProfile
	assert.Equal(t, "Unknown User", missing.DisplayName("Unknown User"))
}

func TestNewMessageSentEvent(t *testing.T) {
	conv := &Conversation{ID: "c", ListingID: "l", BuyerID: "b", SellerID: "s"}
	msg := &Message{ID: "m", SenderID: "s", Content: "yes", CreatedAt: time.Now()}

	ev := NewMessageSentEvent(conv, msg)
	assert.Equal(t, "b", ev.RecipientID)
	assert.Equal(t, "l", ev.ListingID)
	assert.Equal(t, msg.CreatedAt, ev.SentAt)
}
