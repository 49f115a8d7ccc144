package repository

import (
	"errors"
	"fmt"

	"bodyscan-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProfileNotFound нет строки для запрошенной зоны
var ErrProfileNotFound = errors.New("region profile not found")

// RegionProfileRepository интерфейс для работы с таблицей профилей зон
type RegionProfileRepository interface {
	List() ([]*model.RegionProfile, error)
	GetByRegion(region string) (*model.RegionProfile, error)
	Upsert(profile *model.RegionProfile) error
	SeedDefaults(profiles []*model.RegionProfile) (int, error)
}

// regionProfileRepository реализация RegionProfileRepository на gorm
type regionProfileRepository struct {
	db *gorm.DB
}

// NewRegionProfileRepository создает новый instance RegionProfileRepository
func NewRegionProfileRepository(db *gorm.DB) RegionProfileRepository {
	return &regionProfileRepository{
		db: db,
	}
}

// List получает все сохраненные профили
func (r *regionProfileRepository) List() ([]*model.RegionProfile, error) {
	var profiles []*model.RegionProfile
	if err := r.db.Order("region").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list region profiles: %w", err)
	}
	return profiles, nil
}

// GetByRegion получает профиль одной зоны
func (r *regionProfileRepository) GetByRegion(region string) (*model.RegionProfile, error) {
	var profile model.RegionProfile
	err := r.db.Where("region = ?", region).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("region %s: %w", region, ErrProfileNotFound)
		}
		return nil, fmt.Errorf("failed to get region profile: %w", err)
	}
	return &profile, nil
}

// Upsert вставляет профиль или перезаписывает значения существующей строки
func (r *regionProfileRepository) Upsert(profile *model.RegionProfile) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "region"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"from_anchor", "to_anchor", "ratio", "scan_mode",
			"correction_factor", "confidence_weight", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert region profile %s: %w", profile.Region, err)
	}
	return nil
}

// SeedDefaults вставляет недостающие строки, настроенные строки не трогает.
// Возвращает число вставленных строк.
func (r *regionProfileRepository) SeedDefaults(profiles []*model.RegionProfile) (int, error) {
	tx := r.db.Begin()
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	inserted := 0
	for _, p := range profiles {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
		if result.Error != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to seed region profile %s: %w", p.Region, result.Error)
		}
		inserted += int(result.RowsAffected)
	}

	if err := tx.Commit().Error; err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}
