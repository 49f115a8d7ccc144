package measurement

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"bodyscan-go/internal/regions"
	"bodyscan-go/pkg/models"
)

// aspectBoost переводит соотношение осей сечения в уверенность
const aspectBoost = 1.2

// EllipseCircumference вторая формула Рамануджана для периметра эллипса с полуосями a, b
func EllipseCircumference(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	h := math.Pow((a-b)/(a+b), 2)
	return math.Pi * (a + b) * (1 + 3*h/(10+math.Sqrt(4-3*h)))
}

// Calculator оценивает обхваты по парам ширин
type Calculator struct {
	profiles *regions.Store
}

// NewCalculator создает калькулятор, который берет коэффициенты и веса из хранилища профилей
func NewCalculator(profiles *regions.Store) *Calculator {
	return &Calculator{profiles: profiles}
}

// Circumference считает сечение зоны эллипсом с осями фронтальная x сагиттальная
func (c *Calculator) Circumference(region models.MeasurementRegion, w models.RegionWidths) models.CircumferenceResult {
	return CalculateCircumference(region, w, c.profiles.CorrectionFactor(region))
}

// CalculateCircumference считает одну зону с явным поправочным коэффициентом
func CalculateCircumference(region models.MeasurementRegion, w models.RegionWidths, correction float64) models.CircumferenceResult {
	a := w.FrontalCm / 2
	b := w.SagittalCm / 2

	circumference := EllipseCircumference(a, b) * correction

	confidence := 0.0
	if hi := math.Max(a, b); hi > 0 {
		confidence = math.Min(1, math.Min(a, b)/hi*aspectBoost)
	}

	return models.CircumferenceResult{
		Region:          region,
		CircumferenceCm: round(circumference, 1),
		FrontalWidthCm:  round(w.FrontalCm, 1),
		SagittalDepthCm: round(w.SagittalCm, 1),
		Confidence:      round(confidence, 2),
	}
}

// All считает все зоны с положительными фронтальной и сагиттальной ширинами, в порядке вывода
func (c *Calculator) All(widths map[models.MeasurementRegion]models.RegionWidths) []models.CircumferenceResult {
	results := make([]models.CircumferenceResult, 0, len(widths))
	for _, region := range models.AllRegions {
		w, ok := widths[region]
		if !ok || w.FrontalCm <= 0 || w.SagittalCm <= 0 {
			continue
		}
		results = append(results, c.Circumference(region, w))
	}
	return results
}

// OverallConfidence взвешенное среднее уверенностей зон; зоны корпуса с двойным весом
func (c *Calculator) OverallConfidence(results []models.CircumferenceResult) float64 {
	if len(results) == 0 {
		return 0
	}

	values := make([]float64, len(results))
	weights := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Confidence
		weights[i] = c.profiles.ConfidenceWeight(r.Region)
	}
	return stat.Mean(values, weights)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
