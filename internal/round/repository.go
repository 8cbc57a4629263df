package round

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepositoryImpl persists the operator override in the single
// GLOBAL_SETTINGS row.
type SettingsRepositoryImpl struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepositoryImpl {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) ConsumeOverride(ctx context.Context) (Color, bool, error) {
	var color Color
	var found bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var settings GameSettings
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("setting_id = ?", GlobalSettingsID).
			First(&settings).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock game settings: %w", err)
		}
		if settings.NextColorOverride == nil || *settings.NextColorOverride == "" {
			return nil
		}

		color = Color(*settings.NextColorOverride)
		found = true
		return tx.Model(&GameSettings{}).
			Where("setting_id = ?", GlobalSettingsID).
			Updates(map[string]interface{}{
				"next_color_override": nil,
				"updated_at":          gorm.Expr("NOW()"),
			}).Error
	})
	if err != nil {
		return "", false, err
	}
	return color, found, nil
}

func (r *SettingsRepositoryImpl) SetOverride(ctx context.Context, color Color) error {
	value := string(color)
	settings := GameSettings{
		SettingID:         GlobalSettingsID,
		NextColorOverride: &value,
		UpdatedAt:         time.Now(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"next_color_override", "updated_at"}),
		}).
		Create(&settings).Error
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}
