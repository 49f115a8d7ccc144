package regions

import (
	"fmt"

	"bodyscan-go/pkg/models"
)

// ScanMode способ получения ширины из строки сканирования
type ScanMode string

const (
	// ScanFull от крайнего левого до крайнего правого пикселя тела во всей строке
	ScanFull ScanMode = "full"
	// ScanRun непрерывный участок тела, содержащий опорный столбец
	ScanRun ScanMode = "run"
)

const (
	MinCorrectionFactor = 1.00
	MaxCorrectionFactor = 1.08
)

// Profile эмпирически подобранные константы одной зоны.
//
// Строка сканирования лежит на From + Ratio*(To - From). From и To это имена точек
// или виртуальные середины "shoulder_mid", "hip_mid", "knee_mid".
type Profile struct {
	Region           models.MeasurementRegion `json:"region"`
	From             string                   `json:"from" validate:"required"`
	To               string                   `json:"to" validate:"required"`
	Ratio            float64                  `json:"ratio" validate:"gte=0,lte=1"`
	Scan             ScanMode                 `json:"scan" validate:"required,oneof=full run"`
	CorrectionFactor float64                  `json:"correction_factor" validate:"gte=1,lte=1.08"`
	ConfidenceWeight float64                  `json:"confidence_weight" validate:"gt=0"`
}

// Виртуальные опорные точки
const (
	ShoulderMid = "shoulder_mid"
	HipMid      = "hip_mid"
	KneeMid     = "knee_mid"
)

// Validate проверяет профиль перед заменой подобранного значения
func (p Profile) Validate() error {
	if !p.Region.Valid() {
		return fmt.Errorf("unknown region %q", p.Region)
	}
	if !validAnchor(p.From) {
		return fmt.Errorf("region %s: unknown anchor %q", p.Region, p.From)
	}
	if !validAnchor(p.To) {
		return fmt.Errorf("region %s: unknown anchor %q", p.Region, p.To)
	}
	if p.Ratio < 0 || p.Ratio > 1 {
		return fmt.Errorf("region %s: ratio %.3f outside [0,1]", p.Region, p.Ratio)
	}
	if p.CorrectionFactor < MinCorrectionFactor || p.CorrectionFactor > MaxCorrectionFactor {
		return fmt.Errorf("region %s: correction factor %.3f outside [%.2f,%.2f]",
			p.Region, p.CorrectionFactor, MinCorrectionFactor, MaxCorrectionFactor)
	}
	if p.Scan != ScanFull && p.Scan != ScanRun {
		return fmt.Errorf("region %s: unknown scan mode %q", p.Region, p.Scan)
	}
	if p.ConfidenceWeight <= 0 {
		return fmt.Errorf("region %s: confidence weight must be positive", p.Region)
	}
	return nil
}

func validAnchor(name string) bool {
	switch name {
	case ShoulderMid, HipMid, KneeMid:
		return true
	}
	_, ok := models.LandmarkIndex(name)
	return ok
}

// Defaults встроенная подобранная таблица.
// Крайние пиксели всей строки (ScanFull) берутся только для плеч. Остальные зоны берут
// участок вокруг опорного столбца (ScanRun), иначе опущенные руки попадают в грудь и талию.
// Вернуть зоне ScanFull можно через ее профиль.
func Defaults() []Profile {
	return []Profile{
		{Region: models.RegionNeck, From: "nose", To: ShoulderMid, Ratio: 0.75, Scan: ScanRun, CorrectionFactor: 1.02, ConfidenceWeight: 1},
		{Region: models.RegionShoulders, From: ShoulderMid, To: ShoulderMid, Ratio: 0, Scan: ScanFull, CorrectionFactor: 1.05, ConfidenceWeight: 1},
		{Region: models.RegionChest, From: ShoulderMid, To: HipMid, Ratio: 0.25, Scan: ScanRun, CorrectionFactor: 1.04, ConfidenceWeight: 2},
		{Region: models.RegionLeftBicep, From: "left_shoulder", To: "left_elbow", Ratio: 0.4, Scan: ScanRun, CorrectionFactor: 1.02, ConfidenceWeight: 1},
		{Region: models.RegionRightBicep, From: "right_shoulder", To: "right_elbow", Ratio: 0.4, Scan: ScanRun, CorrectionFactor: 1.02, ConfidenceWeight: 1},
		{Region: models.RegionLeftForearm, From: "left_elbow", To: "left_wrist", Ratio: 0.3, Scan: ScanRun, CorrectionFactor: 1.01, ConfidenceWeight: 1},
		{Region: models.RegionRightForearm, From: "right_elbow", To: "right_wrist", Ratio: 0.3, Scan: ScanRun, CorrectionFactor: 1.01, ConfidenceWeight: 1},
		{Region: models.RegionWrist, From: "left_elbow", To: "left_wrist", Ratio: 0.9, Scan: ScanRun, CorrectionFactor: 1.00, ConfidenceWeight: 1},
		{Region: models.RegionWaist, From: ShoulderMid, To: HipMid, Ratio: 0.65, Scan: ScanRun, CorrectionFactor: 1.03, ConfidenceWeight: 2},
		{Region: models.RegionHips, From: HipMid, To: KneeMid, Ratio: 0.1, Scan: ScanRun, CorrectionFactor: 1.05, ConfidenceWeight: 2},
		{Region: models.RegionLeftThigh, From: "left_hip", To: "left_knee", Ratio: 0.35, Scan: ScanRun, CorrectionFactor: 1.04, ConfidenceWeight: 1},
		{Region: models.RegionRightThigh, From: "right_hip", To: "right_knee", Ratio: 0.35, Scan: ScanRun, CorrectionFactor: 1.04, ConfidenceWeight: 1},
		{Region: models.RegionLeftCalf, From: "left_knee", To: "left_ankle", Ratio: 0.3, Scan: ScanRun, CorrectionFactor: 1.02, ConfidenceWeight: 1},
		{Region: models.RegionRightCalf, From: "right_knee", To: "right_ankle", Ratio: 0.3, Scan: ScanRun, CorrectionFactor: 1.02, ConfidenceWeight: 1},
	}
}
