package measurement

import (
	"math"
	"testing"

	"bodyscan-go/internal/regions"
	"bodyscan-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEllipseCircumferenceCircle(t *testing.T) {
	for _, r := range []float64{0.5, 1, 7.3, 40} {
		assert.InDelta(t, 2*math.Pi*r, EllipseCircumference(r, r), 1e-9)
	}
}

func TestEllipseCircumferenceBounds(t *testing.T) {
	pairs := [][2]float64{{1, 2}, {10, 3}, {15, 14}, {0.1, 25}, {30, 30}}
	for _, p := range pairs {
		c := EllipseCircumference(p[0], p[1])
		lo, hi := math.Min(p[0], p[1]), math.Max(p[0], p[1])
		assert.GreaterOrEqual(t, c, 2*math.Pi*lo)
		assert.LessOrEqual(t, c, 2*math.Pi*hi)
	}
}

func TestCalculateCircumferenceMonotonic(t *testing.T) {
	prev := 0.0
	for frontal := 10.0; frontal <= 40; frontal += 2 {
		res := CalculateCircumference(models.RegionWaist, models.RegionWidths{FrontalCm: frontal, SagittalCm: 20}, 1.03)
		assert.Greater(t, res.CircumferenceCm, prev)
		prev = res.CircumferenceCm
	}

	prev = 0
	for sagittal := 10.0; sagittal <= 40; sagittal += 2 {
		res := CalculateCircumference(models.RegionWaist, models.RegionWidths{FrontalCm: 30, SagittalCm: sagittal}, 1.03)
		assert.Greater(t, res.CircumferenceCm, prev)
		prev = res.CircumferenceCm
	}
}

func TestCalculateCircumference(t *testing.T) {
	res := CalculateCircumference(models.RegionWaist, models.RegionWidths{FrontalCm: 32, SagittalCm: 24}, 1.03)

	expected := EllipseCircumference(16, 12) * 1.03
	assert.InDelta(t, expected, res.CircumferenceCm, 0.05)
	assert.Equal(t, math.Round(res.CircumferenceCm*10)/10, res.CircumferenceCm)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9) // 12/16 * 1.2
	assert.Equal(t, 32.0, res.FrontalWidthCm)
	assert.Equal(t, 24.0, res.SagittalDepthCm)

	neck := CalculateCircumference(models.RegionNeck, models.RegionWidths{FrontalCm: 12, SagittalCm: 11}, 1.02)
	assert.Equal(t, 1.0, neck.Confidence, "capped")
}

func TestCalculatorUsesStoreFactor(t *testing.T) {
	store := regions.NewStore()
	c := NewCalculator(store)
	w := models.RegionWidths{FrontalCm: 30, SagittalCm: 22}

	before := c.Circumference(models.RegionHips, w)

	p, ok := store.Get(models.RegionHips)
	require.True(t, ok)
	p.CorrectionFactor = 1.00
	require.NoError(t, store.Update(p))

	after := c.Circumference(models.RegionHips, w)
	assert.Less(t, after.CircumferenceCm, before.CircumferenceCm)
}

func TestAllSkipsIncompleteRegions(t *testing.T) {
	c := NewCalculator(regions.NewStore())
	results := c.All(map[models.MeasurementRegion]models.RegionWidths{
		models.RegionHips:  {FrontalCm: 34, SagittalCm: 26},
		models.RegionNeck:  {FrontalCm: 11, SagittalCm: 12},
		models.RegionWaist: {FrontalCm: 30, SagittalCm: 0},
	})

	require.Len(t, results, 2)
	assert.Equal(t, models.RegionNeck, results[0].Region)
	assert.Equal(t, models.RegionHips, results[1].Region)
}

func TestOverallConfidenceWeightsTorso(t *testing.T) {
	c := NewCalculator(regions.NewStore())

	results := []models.CircumferenceResult{
		{Region: models.RegionWaist, Confidence: 1.0},
		{Region: models.RegionLeftCalf, Confidence: 0.4},
	}
	// (2*1.0 + 1*0.4) / 3
	assert.InDelta(t, 0.8, c.OverallConfidence(results), 1e-9)
	assert.Equal(t, 0.0, c.OverallConfidence(nil))
}
