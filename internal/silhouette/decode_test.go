package silhouette

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"bodyscan-go/internal/fixtures"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toGray(m *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestDecodeMaskPNG(t *testing.T) {
	src := fixtures.FrontMask()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, toGray(src)))

	got, err := DecodeMask(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.Width, got.Width)
	assert.Equal(t, src.Height, got.Height)
	assert.Equal(t, src.Data, got.Data)
}

func TestDecodeMaskBMP(t *testing.T) {
	src := fixtures.SideMask()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, toGray(src)))

	got, err := DecodeMask(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.Data, got.Data)
}

func TestDecodeMaskTransparentIsBackground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	got, err := DecodeMask(&buf)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 0}, got.Data)
}

func TestDecodeMaskGarbage(t *testing.T) {
	_, err := DecodeMask(bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrSegmentationFailure))
}

func TestDecodeMaskRejectsOversized(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"wide", MaxMaskDimension + 1, 1},
		{"tall", 1, MaxMaskDimension + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, tt.width, tt.height))))

			_, err := DecodeMask(&buf)
			require.Error(t, err)
			assert.Equal(t, scanerr.SegmentationFailure, scanerr.KindOf(err))
			assert.Contains(t, err.Error(), "exceeds")
		})
	}
}

func TestDecodeMaskAtDimensionLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, MaxMaskDimension, 1))))

	got, err := DecodeMask(&buf)
	require.NoError(t, err)
	assert.Equal(t, MaxMaskDimension, got.Width)
	assert.Len(t, got.Data, MaxMaskDimension)
}
