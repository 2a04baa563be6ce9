package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
)

// GormPreferenceRepository implements PreferenceRepository using GORM.
type GormPreferenceRepository struct {
	db *gorm.DB
}

var _ PreferenceRepository = (*GormPreferenceRepository)(nil)

// NewGormPreferenceRepository creates a new GORM-based preference repository.
func NewGormPreferenceRepository(db *gorm.DB) *GormPreferenceRepository {
	return &GormPreferenceRepository{db: db}
}

// GetByUserID retrieves the stored preference of a user.
func (r *GormPreferenceRepository) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	l := log.Ctx(ctx)

	var model domain.NotificationPreferenceModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferenceNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get notification preference")
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return model.ToDomain(), nil
}

// Upsert creates the preference or replaces all mutable fields of an existing one.
func (r *GormPreferenceRepository) Upsert(ctx context.Context, pref *domain.NotificationPreference) error {
	l := log.Ctx(ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	model := domain.PreferenceToModel(pref)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email_notifications_enabled", "email", "first_name", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, pref.UserID).Msg("failed to upsert notification preference")
		return fmt.Errorf("upsert preference: %w", err)
	}

	l.Debug().Str(log.FieldUserID, pref.UserID).Bool("enabled", pref.EmailNotificationsEnabled).Msg("notification preference saved")
	return nil
}
