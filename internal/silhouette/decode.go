package silhouette

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

// maskThreshold уровень серого, выше которого пиксель считается телом
const maskThreshold = 127

// MaxMaskDimension наибольшая допустимая сторона маски в пикселях
const MaxMaskDimension = 4096

// DecodeMask читает изображение маски сегментации (png, jpeg, bmp или webp).
// Пиксели светлее среднего серого это тело, прозрачные пиксели это фон.
// Сначала проверяется заголовок: маски шире или выше MaxMaskDimension не декодируются.
func DecodeMask(r io.Reader) (*models.Mask, error) {
	const op = "silhouette.DecodeMask"

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, scanerr.New(scanerr.SegmentationFailure, op, fmt.Errorf("failed to read mask: %w", err))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, scanerr.New(scanerr.SegmentationFailure, op, fmt.Errorf("failed to decode mask header: %w", err))
	}
	if cfg.Width > MaxMaskDimension || cfg.Height > MaxMaskDimension {
		return nil, scanerr.Newf(scanerr.SegmentationFailure, op, "%s mask %dx%d exceeds %dx%d",
			format, cfg.Width, cfg.Height, MaxMaskDimension, MaxMaskDimension)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, scanerr.New(scanerr.SegmentationFailure, op, fmt.Errorf("failed to decode mask: %w", err))
	}

	b := img.Bounds()
	mask := &models.Mask{Width: b.Dx(), Height: b.Dy(), Data: make([]uint8, b.Dx()*b.Dy())}
	if mask.Width == 0 || mask.Height == 0 {
		return nil, scanerr.Newf(scanerr.SegmentationFailure, op, "empty %s mask", format)
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if isBody(img.At(x, y)) {
				mask.Data[(y-b.Min.Y)*mask.Width+(x-b.Min.X)] = 255
			}
		}
	}
	return mask, nil
}

func isBody(c color.Color) bool {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return false
	}
	// яркость, 16-битные каналы
	lum := (299*r + 587*g + 114*b) / 1000
	return lum>>8 > maskThreshold
}
