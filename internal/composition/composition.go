package composition

import (
	"math"

	"bodyscan-go/pkg/models"
)

const (
	navyWeight   = 0.6
	cunbaeWeight = 0.4

	minBodyFat = 3.0
	maxBodyFat = 60.0

	// используются, если ключевой обхват не измерен
	defaultWaistCm = 80.0
	defaultNeckCm  = 38.0
	defaultHipCm   = 95.0

	MethodEnsemble = "ensemble"
)

// NavyBodyFat формула ВМС США по обхватам
func NavyBodyFat(sex models.Sex, waistCm, neckCm, hipCm, heightCm float64) float64 {
	if sex == models.Male {
		diff := waistCm - neckCm
		if diff <= 0 {
			return 5.0
		}
		return 86.010*math.Log10(diff) - 70.041*math.Log10(heightCm) + 36.76
	}

	total := waistCm + hipCm - neckCm
	if total <= 0 {
		return 10.0
	}
	return 163.205*math.Log10(total) - 97.684*math.Log10(heightCm) - 78.387
}

// CunbaeBodyFat оценка ожирения CUN-BAE
func CunbaeBodyFat(bmi float64, age int, sex models.Sex) float64 {
	s := 0.0
	if sex == models.Female {
		s = 1.0
	}
	a := float64(age)
	return -44.988 +
		0.503*a +
		10.689*s +
		3.172*bmi -
		0.026*bmi*bmi +
		0.181*bmi*s -
		0.02*bmi*a -
		0.005*bmi*bmi*s +
		0.00021*bmi*bmi*a
}

// CalculateBMI вес, деленный на квадрат роста в метрах
func CalculateBMI(heightCm, weightKg float64) float64 {
	m := heightCm / 100
	return weightKg / (m * m)
}

// Measurements ключевые обхваты для оценки, ноль = не измерено
type Measurements struct {
	WaistCm float64
	NeckCm  float64
	HipCm   float64
}

// FromCircumferences выбирает талию, шею и бедра из списка результатов
func FromCircumferences(results []models.CircumferenceResult) Measurements {
	var m Measurements
	for _, r := range results {
		switch r.Region {
		case models.RegionWaist:
			m.WaistCm = r.CircumferenceCm
		case models.RegionNeck:
			m.NeckCm = r.CircumferenceCm
		case models.RegionHips:
			m.HipCm = r.CircumferenceCm
		}
	}
	return m
}

// Calculate считает ансамбль Navy / CUN-BAE
func Calculate(subject models.Subject, m Measurements) models.BodyCompositionResult {
	waist := orDefault(m.WaistCm, defaultWaistCm)
	neck := orDefault(m.NeckCm, defaultNeckCm)
	hip := orDefault(m.HipCm, defaultHipCm)

	bmi := CalculateBMI(subject.HeightCm, subject.WeightKg)
	navy := clamp(NavyBodyFat(subject.Sex, waist, neck, hip, subject.HeightCm))
	cunbae := clamp(CunbaeBodyFat(bmi, subject.Age, subject.Sex))

	bodyFat := navyWeight*navy + cunbaeWeight*cunbae
	fatMass := bodyFat / 100 * subject.WeightKg

	return models.BodyCompositionResult{
		BodyFatPct:    round(bodyFat, 1),
		BodyFatNavy:   round(navy, 1),
		BodyFatCunbae: round(cunbae, 1),
		LeanMassKg:    round(subject.WeightKg-fatMass, 1),
		FatMassKg:     round(fatMass, 1),
		BMI:           round(bmi, 1),
		WaistHipRatio: round(waist/hip, 2),
		Method:        MethodEnsemble,
	}
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func clamp(v float64) float64 {
	return math.Max(minBodyFat, math.Min(maxBodyFat, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
