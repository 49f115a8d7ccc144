package service

import (
	"time"

	"bodyscan-go/internal/calibration"
	"bodyscan-go/internal/flow"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

// ErrorView ошибка обработки в том виде, в каком ее видит клиент
type ErrorView struct {
	Kind    scanerr.Kind `json:"kind"`
	Message string       `json:"message"`
}

// CaptureView сводка по замороженному снимку
type CaptureView struct {
	ImageWidth  int  `json:"image_width"`
	ImageHeight int  `json:"image_height"`
	HasImage    bool `json:"has_image"`
	HasMask     bool `json:"has_mask"`
	HasDepth    bool `json:"has_depth"`
	Visible     int  `json:"visible_landmarks"`
}

// SessionView снимок сессии, который возвращает API
type SessionView struct {
	ID               string                  `json:"id"`
	ClientID         string                  `json:"client_id,omitempty"`
	Step             flow.Step               `json:"step"`
	Subject          *models.Subject         `json:"subject,omitempty"`
	Calibration      *models.CalibrationData `json:"calibration,omitempty"`
	CalibrationCheck *calibration.Validation `json:"calibration_check,omitempty"`
	Front            *CaptureView            `json:"front,omitempty"`
	Side             *CaptureView            `json:"side,omitempty"`
	Processing       bool                    `json:"processing"`
	Error            *ErrorView              `json:"error,omitempty"`
	Result           *models.ScanResult      `json:"result,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	LastSeenAt       time.Time               `json:"last_seen_at"`
}

// CreateSessionRequest тело запроса на создание
type CreateSessionRequest struct {
	ClientID string `json:"client_id"`
}

// ProfileUpdateRequest частичное обновление профиля зоны, nil поля сохраняют значение
type ProfileUpdateRequest struct {
	From             *string  `json:"from,omitempty"`
	To               *string  `json:"to,omitempty"`
	Ratio            *float64 `json:"ratio,omitempty" validate:"omitempty,gte=0,lte=1"`
	Scan             *string  `json:"scan,omitempty" validate:"omitempty,oneof=full run"`
	CorrectionFactor *float64 `json:"correction_factor,omitempty" validate:"omitempty,gte=1,lte=1.08"`
	ConfidenceWeight *float64 `json:"confidence_weight,omitempty" validate:"omitempty,gt=0"`
}

// ListProfilesResponse все активные профили зон
type ListProfilesResponse struct {
	Profiles []ProfileView `json:"profiles"`
	Total    int           `json:"total"`
	Source   string        `json:"source"`
}

// ProfileView профиль одной зоны
type ProfileView struct {
	Region           models.MeasurementRegion `json:"region"`
	From             string                   `json:"from"`
	To               string                   `json:"to"`
	Ratio            float64                  `json:"ratio"`
	Scan             string                   `json:"scan"`
	CorrectionFactor float64                  `json:"correction_factor"`
	ConfidenceWeight float64                  `json:"confidence_weight"`
}
