package regions

import (
	"testing"

	"bodyscan-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsCoverEveryRegion(t *testing.T) {
	store := NewStore()
	all := store.All()
	require.Len(t, all, models.RegionCount)
	for i, p := range all {
		assert.Equal(t, models.AllRegions[i], p.Region)
		assert.NoError(t, p.Validate())
	}
}

func TestDefaultsWeightTorsoDouble(t *testing.T) {
	store := NewStore()
	for _, r := range []models.MeasurementRegion{models.RegionWaist, models.RegionChest, models.RegionHips} {
		assert.Equal(t, 2.0, store.ConfidenceWeight(r), r)
	}
	assert.Equal(t, 1.0, store.ConfidenceWeight(models.RegionNeck))
}

func TestDefaultsScanModes(t *testing.T) {
	for _, p := range Defaults() {
		want := ScanRun
		if p.Region == models.RegionShoulders {
			want = ScanFull
		}
		assert.Equal(t, want, p.Scan, p.Region)
	}
}

func TestUpdateRejectsOutOfRangeFactor(t *testing.T) {
	store := NewStore()
	p, ok := store.Get(models.RegionWaist)
	require.True(t, ok)

	p.CorrectionFactor = 1.2
	assert.Error(t, store.Update(p))
	assert.Equal(t, 1.03, store.CorrectionFactor(models.RegionWaist))

	p.CorrectionFactor = 1.06
	require.NoError(t, store.Update(p))
	assert.Equal(t, 1.06, store.CorrectionFactor(models.RegionWaist))
}

func TestValidateRejectsUnknownAnchor(t *testing.T) {
	p := Defaults()[0]
	p.From = "left_antenna"
	assert.Error(t, p.Validate())

	p = Defaults()[0]
	p.Region = "tail"
	assert.Error(t, p.Validate())
}
