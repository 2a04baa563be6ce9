package domain

import "time"

// ConversationModel is the GORM model for conversations table.
type ConversationModel struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	ListingID string         `gorm:"type:varchar(64);not null;uniqueIndex:uidx_conversation_triple,priority:1"`
	BuyerID   string         `gorm:"type:varchar(64);not null;uniqueIndex:uidx_conversation_triple,priority:2;index"`
	SellerID  string         `gorm:"type:varchar(64);not null;uniqueIndex:uidx_conversation_triple,priority:3;index"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;index"`
	Messages  []MessageModel `gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for ConversationModel.
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts ConversationModel to domain Conversation.
func (m *ConversationModel) ToDomain() *Conversation {
	return &Conversation{
		ID:        m.ID,
		ListingID: m.ListingID,
		BuyerID:   m.BuyerID,
		SellerID:  m.SellerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ConversationToModel converts domain Conversation to ConversationModel.
func ConversationToModel(c *Conversation) *ConversationModel {
	return &ConversationModel{
		ID:        c.ID,
		ListingID: c.ListingID,
		BuyerID:   c.BuyerID,
		SellerID:  c.SellerID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// MessageModel is the GORM model for messages table.
type MessageModel struct {
	ID             string    `gorm:"type:varchar(26);primaryKey"`
	ConversationID string    `gorm:"type:varchar(36);not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       string    `gorm:"type:varchar(64);not null;index"`
	Content        string    `gorm:"type:text;not null"`
	IsRead         bool      `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		IsRead:         msg.IsRead,
		CreatedAt:      msg.CreatedAt,
	}
}

// NotificationPreferenceModel is the GORM model for notification_preferences table.
// EmailNotificationsEnabled has no column default so that an explicit false is written.
type NotificationPreferenceModel struct {
	UserID                    string `gorm:"type:varchar(64);primaryKey"`
	EmailNotificationsEnabled bool   `gorm:"not null"`
	Email                     string `gorm:"type:varchar(255)"`
	FirstName                 string `gorm:"type:varchar(100)"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// TableName specifies the table name for NotificationPreferenceModel.
func (NotificationPreferenceModel) TableName() string {
	return "notification_preferences"
}

// ToDomain converts NotificationPreferenceModel to domain NotificationPreference.
func (m *NotificationPreferenceModel) ToDomain() *NotificationPreference {
	return &NotificationPreference{
		UserID:                    m.UserID,
		EmailNotificationsEnabled: m.EmailNotificationsEnabled,
		Email:                     m.Email,
		FirstName:                 m.FirstName,
		CreatedAt:                 m.CreatedAt,
		UpdatedAt:                 m.UpdatedAt,
	}
}

// PreferenceToModel converts domain NotificationPreference to its model.
func PreferenceToModel(p *NotificationPreference) *NotificationPreferenceModel {
	return &NotificationPreferenceModel{
		UserID:                    p.UserID,
		EmailNotificationsEnabled: p.EmailNotificationsEnabled,
		Email:                     p.Email,
		FirstName:                 p.FirstName,
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}

// UserModel maps the marketplace users table. The messaging service only reads it.
type UserModel struct {
	UserID    string `gorm:"column:user_id;type:varchar(64);primaryKey"`
	Username  string `gorm:"type:varchar(50)"`
	FirstName string `gorm:"type:varchar(100)"`
	LastName  string `gorm:"type:varchar(100)"`
	Email     string `gorm:"type:varchar(255)"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain UserProfile.
func (m *UserModel) ToDomain() *UserProfile {
	return &UserProfile{
		ID:        m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
	}
}
