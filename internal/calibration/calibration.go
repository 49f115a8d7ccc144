package calibration

import (
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

const (
	// HeadTopOffset макушка выше носа на эту долю nose_y
	HeadTopOffset = 0.10
	// StatureFraction доля роста от макушки до лодыжек
	StatureFraction = 0.95

	MinPixelsPerCm = 1.0
	MaxPixelsPerCm = 20.0
)

// CalibrateFromHeight вычисляет масштаб по росту пользователя и точкам носа и лодыжек
func CalibrateFromHeight(kps models.Keypoints, imageW, imageH int, subject models.Subject) (*models.CalibrationData, error) {
	const op = "calibration.CalibrateFromHeight"

	nose, ok := kps.Landmark(models.Nose)
	if !ok {
		return nil, scanerr.Newf(scanerr.MissingLandmarks, op, "nose not detected")
	}
	la, lok := kps.Landmark(models.LeftAnkle)
	ra, rok := kps.Landmark(models.RightAnkle)
	if !lok || !rok {
		return nil, scanerr.Newf(scanerr.MissingLandmarks, op, "ankles not detected")
	}

	h := float64(imageH)
	noseY := nose.Y * h
	headTopY := noseY - HeadTopOffset*noseY
	ankleY := (la.Y + ra.Y) / 2 * h

	pixelHeight := ankleY - headTopY
	if pixelHeight <= 0 || subject.HeightCm <= 0 {
		return nil, scanerr.Newf(scanerr.CalibrationImplausible, op,
			"head-to-ankle span %.1fpx for height %.1fcm", pixelHeight, subject.HeightCm)
	}

	return &models.CalibrationData{
		HeightCm:    subject.HeightCm,
		WeightKg:    subject.WeightKg,
		Age:         subject.Age,
		Sex:         subject.Sex,
		PixelsPerCm: PixelsPerCm(pixelHeight, subject.HeightCm),
		ImageWidth:  imageW,
		ImageHeight: imageH,
	}, nil
}

// PixelsPerCm масштаб для размаха макушка-лодыжки в пикселях при росте heightCm
func PixelsPerCm(pixelHeight, heightCm float64) float64 {
	return pixelHeight / (heightCm * StatureFraction)
}

// Validation рекомендательный итог, конвейер не блокирует
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// ValidateCalibration отмечает масштаб, при котором пользователь стоит слишком далеко или близко
func ValidateCalibration(data *models.CalibrationData) Validation {
	switch {
	case data.PixelsPerCm < MinPixelsPerCm:
		return Validation{Message: "Too far from camera. Move closer."}
	case data.PixelsPerCm > MaxPixelsPerCm:
		return Validation{Message: "Too close to camera. Step back."}
	}
	return Validation{Valid: true}
}
