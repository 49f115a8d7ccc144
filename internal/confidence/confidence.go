package confidence

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"bodyscan-go/pkg/models"
)

// Веса факторов общей оценки
const (
	FrontVisibilityWeight = 0.20
	SideVisibilityWeight  = 0.20
	CalibrationWeight     = 0.15
	CoverageWeight        = 0.20
	RegionWeight          = 0.25
)

// Factors отдельные сигналы, из которых складывается оценка, каждый в [0,1]
type Factors struct {
	FrontVisibility float64 `json:"front_visibility"`
	SideVisibility  float64 `json:"side_visibility"`
	Calibration     float64 `json:"calibration"`
	Coverage        float64 `json:"coverage"`
	Regions         float64 `json:"regions"`
}

// Collect собирает факторы из результатов конвейера
func Collect(circumferences []models.CircumferenceResult, front, side models.Keypoints, cal *models.CalibrationData) Factors {
	return Factors{
		FrontVisibility: visibility(front),
		SideVisibility:  visibility(side),
		Calibration:     CalibrationScore(cal),
		Coverage:        float64(len(circumferences)) / float64(models.RegionCount),
		Regions:         meanConfidence(circumferences),
	}
}

// Score общая уверенность результата с округлением до сотых
func Score(circumferences []models.CircumferenceResult, front, side models.Keypoints, cal *models.CalibrationData) float64 {
	return Collect(circumferences, front, side, cal).Score()
}

// Score взвешенное среднее факторов с округлением до сотых
func (f Factors) Score() float64 {
	values := []float64{f.FrontVisibility, f.SideVisibility, f.Calibration, f.Coverage, f.Regions}
	weights := []float64{FrontVisibilityWeight, SideVisibilityWeight, CalibrationWeight, CoverageWeight, RegionWeight}
	return math.Round(stat.Mean(values, weights)*100) / 100
}

// CalibrationScore правдоподобие масштаба
func CalibrationScore(cal *models.CalibrationData) float64 {
	if cal == nil {
		return 0.5
	}
	ppc := cal.PixelsPerCm
	switch {
	case ppc >= 3 && ppc <= 10:
		return 1.0
	case ppc >= 2 && ppc <= 15:
		return 0.8
	default:
		return 0.5
	}
}

func visibility(kps models.Keypoints) float64 {
	return float64(kps.VisibleCount()) / float64(models.KeypointCount)
}

func meanConfidence(results []models.CircumferenceResult) float64 {
	if len(results) == 0 {
		return 0
	}
	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Confidence
	}
	return stat.Mean(values, nil)
}
