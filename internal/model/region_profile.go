package model

import (
	"time"

	"bodyscan-go/internal/regions"
	"bodyscan-go/pkg/models"
)

// RegionProfile подобранные константы одной зоны в базе данных
type RegionProfile struct {
	Region           string  `gorm:"primaryKey;type:varchar(32)" json:"region"`
	FromAnchor       string  `gorm:"type:varchar(32);not null" json:"from"`
	ToAnchor         string  `gorm:"type:varchar(32);not null" json:"to"`
	Ratio            float64 `gorm:"not null" json:"ratio"`
	ScanMode         string  `gorm:"type:varchar(8);not null;default:run" json:"scan"`
	CorrectionFactor float64 `gorm:"not null;default:1" json:"correction_factor"`
	ConfidenceWeight float64 `gorm:"not null;default:1" json:"confidence_weight"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName указывает имя таблицы для RegionProfile
func (RegionProfile) TableName() string {
	return "region_profiles"
}

// ToProfile превращает строку в профиль в памяти
func (p *RegionProfile) ToProfile() regions.Profile {
	return regions.Profile{
		Region:           models.MeasurementRegion(p.Region),
		From:             p.FromAnchor,
		To:               p.ToAnchor,
		Ratio:            p.Ratio,
		Scan:             regions.ScanMode(p.ScanMode),
		CorrectionFactor: p.CorrectionFactor,
		ConfidenceWeight: p.ConfidenceWeight,
	}
}

// FromProfile строит строку из профиля в памяти
func FromProfile(p regions.Profile) *RegionProfile {
	return &RegionProfile{
		Region:           string(p.Region),
		FromAnchor:       p.From,
		ToAnchor:         p.To,
		Ratio:            p.Ratio,
		ScanMode:         string(p.Scan),
		CorrectionFactor: p.CorrectionFactor,
		ConfidenceWeight: p.ConfidenceWeight,
	}
}
