package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/idgen"
	"github.com/campusmarket/marketplace/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db  *gorm.DB
	ids idgen.TimedGenerator
}

var _ MessageRepository = (*GormMessageRepository)(nil)

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB, ids idgen.TimedGenerator) *GormMessageRepository {
	return &GormMessageRepository{db: db, ids: ids}
}

// Append stores a message and advances the conversation activity time.
// The message ID is generated from CreatedAt so that IDs follow creation order.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	l := log.Ctx(ctx)

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	id, err := r.ids.GenerateAt(msg.CreatedAt)
	if err != nil {
		return err
	}
	msg.ID = id
	msg.IsRead = false

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv domain.ConversationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "updated_at").
			First(&conv, "id = ?", msg.ConversationID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}

		// Sends can commit out of timestamp order; updated_at only moves forward.
		err = tx.Model(&domain.ConversationModel{}).
			Where("id = ? AND updated_at < ?", msg.ConversationID, msg.CreatedAt).
			UpdateColumn("updated_at", msg.CreatedAt).Error
		if err != nil {
			return err
		}
		return tx.Create(domain.MessageToModel(msg)).Error
	})
	if err != nil {
		msg.ID = ""
		if errors.Is(err, ErrConversationNotFound) {
			return err
		}
		l.Error().Err(err).Str(log.FieldConversationID, msg.ConversationID).Msg("failed to append message in db")
		return fmt.Errorf("append message: %w", err)
	}

	l.Debug().
		Str(log.FieldConversationID, msg.ConversationID).
		Str(log.FieldMessageID, msg.ID).
		Msg("message appended in db")
	return nil
}

// GetByID retrieves a message by ID.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	var model domain.MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		l.Error().Err(err).Str(log.FieldMessageID, id).Msg("failed to get message by id")
		return nil, fmt.Errorf("get message: %w", err)
	}
	return model.ToDomain(), nil
}

// ListByConversation retrieves the full history of a conversation.
func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to list messages from db")
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs := make([]domain.Message, len(models))
	for i := range models {
		msgs[i] = *models[i].ToDomain()
	}
	return msgs, nil
}

// LatestByConversations retrieves the newest message per conversation.
func (r *GormMessageRepository) LatestByConversations(ctx context.Context, conversationIDs []string) (map[string]domain.Message, error) {
	l := log.Ctx(ctx)

	out := make(map[string]domain.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	// A message is the latest when no later message exists in its conversation.
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*").
		Where("m.conversation_id IN ?", conversationIDs).
		Where(`NOT EXISTS (
			SELECT 1 FROM messages AS n
			WHERE n.conversation_id = m.conversation_id
			AND (n.created_at > m.created_at OR (n.created_at = m.created_at AND n.id > m.id))
		)`).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Int("count", len(conversationIDs)).Msg("failed to load latest messages from db")
		return nil, fmt.Errorf("latest messages: %w", err)
	}

	for i := range models {
		out[models[i].ConversationID] = *models[i].ToDomain()
	}
	return out, nil
}

// CountUnread counts messages in a conversation that userID has not read.
func (r *GormMessageRepository) CountUnread(ctx context.Context, conversationID, userID string) (int64, error) {
	l := log.Ctx(ctx)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
		Count(&count).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to count unread messages")
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

type unreadRow struct {
	ConversationID string
	Unread         int64
}

// CountUnreadByConversations counts unread messages per conversation in one query.
func (r *GormMessageRepository) CountUnreadByConversations(ctx context.Context, conversationIDs []string, userID string) (map[string]int64, error) {
	l := log.Ctx(ctx)

	out := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var rows []unreadRow
	err := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", conversationIDs, userID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to count unread messages per conversation")
		return nil, fmt.Errorf("count unread by conversation: %w", err)
	}

	for _, row := range rows {
		out[row.ConversationID] = row.Unread
	}
	return out, nil
}

// CountUnreadForUser counts unread messages addressed to userID across all conversations.
func (r *GormMessageRepository) CountUnreadForUser(ctx context.Context, userID string) (int64, error) {
	l := log.Ctx(ctx)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.buyer_id = ? OR conversations.seller_id = ?)", userID, userID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to count unread messages for user")
		return 0, fmt.Errorf("count unread for user: %w", err)
	}
	return count, nil
}

// MarkConversationRead marks every unread message from the other participant as read.
func (r *GormMessageRepository) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	l := log.Ctx(ctx)

	res := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		l.Error().Err(res.Error).Str(log.FieldConversationID, conversationID).Msg("failed to mark conversation read")
		return 0, fmt.Errorf("mark conversation read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkRead marks a single message as read on behalf of userID.
// Own messages and already-read messages are left untouched.
func (r *GormMessageRepository) MarkRead(ctx context.Context, messageID, userID string) (int64, error) {
	l := log.Ctx(ctx)

	res := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("id = ? AND sender_id <> ? AND is_read = ?", messageID, userID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		l.Error().Err(res.Error).Str(log.FieldMessageID, messageID).Msg("failed to mark message read")
		return 0, fmt.Errorf("mark message read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
