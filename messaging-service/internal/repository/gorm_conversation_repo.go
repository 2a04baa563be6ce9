package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/idgen"
	"github.com/campusmarket/marketplace/pkg/database"
	"github.com/campusmarket/marketplace/pkg/log"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

var _ ConversationRepository = (*GormConversationRepository)(nil)

// NewGormConversationRepository creates a new GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB, ids idgen.Generator) *GormConversationRepository {
	return &GormConversationRepository{db: db, ids: ids}
}

// Create creates a new conversation. ID is assigned here; timestamps are
// taken from conv and must be set by the caller.
func (r *GormConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	l := log.Ctx(ctx)

	id, err := r.ids.Generate()
	if err != nil {
		return err
	}
	conv.ID = id

	model := domain.ConversationToModel(conv)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if database.IsUniqueViolation(err) {
			conv.ID = ""
			return ErrConversationExists
		}
		l.Error().Err(err).Str(log.FieldListingID, conv.ListingID).Msg("failed to create conversation in db")
		return fmt.Errorf("create conversation: %w", err)
	}

	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldConversationID, conv.ID).Msg("conversation created in db")
	return nil
}

// GetByID retrieves a conversation by ID.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	l := log.Ctx(ctx)

	var model domain.ConversationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		l.Error().Err(err).Str(log.FieldConversationID, id).Msg("failed to get conversation by id")
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByTriple retrieves the conversation for an exact (listing, buyer, seller) triple.
func (r *GormConversationRepository) FindByTriple(ctx context.Context, listingID, buyerID, sellerID string) (*domain.Conversation, error) {
	l := log.Ctx(ctx)

	var model domain.ConversationModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ? AND seller_id = ?", listingID, buyerID, sellerID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		l.Error().Err(err).Str(log.FieldListingID, listingID).Msg("failed to find conversation by triple")
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return model.ToDomain(), nil
}

// ListByParticipant retrieves the conversations a user takes part in.
func (r *GormConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	l := log.Ctx(ctx)

	var models []domain.ConversationModel
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list user conversations from db")
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	convs := make([]domain.Conversation, len(models))
	for i := range models {
		convs[i] = *models[i].ToDomain()
	}
	return convs, nil
}
