package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
)

// GormUserRepository reads profiles from the marketplace users table.
type GormUserRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*GormUserRepository)(nil)

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByID retrieves a user profile by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	l := log.Ctx(ctx)

	var model domain.UserModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, id).Msg("failed to get user profile")
		return nil, fmt.Errorf("get user: %w", err)
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves several profiles at once. Unknown IDs are absent from the result.
func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	l := log.Ctx(ctx)

	out := make(map[string]*domain.UserProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&models).Error; err != nil {
		l.Error().Err(err).Int("count", len(ids)).Msg("failed to get user profiles")
		return nil, fmt.Errorf("get users: %w", err)
	}
	for i := range models {
		out[models[i].UserID] = models[i].ToDomain()
	}
	return out, nil
}
