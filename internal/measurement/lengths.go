package measurement

import (
	"math"

	"bodyscan-go/pkg/models"
)

// Lengths линейные размеры тела по фронтальным точкам.
// Размер с невидимыми точками остается нулем. Без годного масштаба возвращает nil.
func Lengths(kps models.Keypoints, imageWidth, imageHeight int, cal *models.CalibrationData) *models.BodyLengths {
	if cal == nil || cal.PixelsPerCm <= 0 || imageWidth <= 0 || imageHeight <= 0 {
		return nil
	}

	toCm := func(px float64) float64 {
		return round(px/cal.PixelsPerCm, 1)
	}
	point := func(idx int) (x, y float64, ok bool) {
		kp, ok := kps.VisibleLandmark(idx)
		if !ok {
			return 0, 0, false
		}
		return kp.X * float64(imageWidth), kp.Y * float64(imageHeight), true
	}
	mid := func(a, b int) (x, y float64, ok bool) {
		ax, ay, okA := point(a)
		bx, by, okB := point(b)
		return (ax + bx) / 2, (ay + by) / 2, okA && okB
	}
	// path сумма расстояний вдоль цепочки точек, ноль если звена нет
	path := func(chain ...int) float64 {
		total := 0.0
		px, py, ok := point(chain[0])
		if !ok {
			return 0
		}
		for _, idx := range chain[1:] {
			x, y, ok := point(idx)
			if !ok {
				return 0
			}
			total += math.Hypot(x-px, y-py)
			px, py = x, y
		}
		return total
	}

	lengths := &models.BodyLengths{
		HeightCm:        cal.HeightCm,
		ShoulderWidthCm: toCm(path(models.LeftShoulder, models.RightShoulder)),
		// вдоль рук, чтобы A-поза давала размах как в T-позе
		ArmSpanCm: toCm(path(models.LeftWrist, models.LeftElbow, models.LeftShoulder,
			models.RightShoulder, models.RightElbow, models.RightWrist)),
	}

	sx, sy, okShoulders := mid(models.LeftShoulder, models.RightShoulder)
	hx, hy, okHips := mid(models.LeftHip, models.RightHip)
	ax, ay, okAnkles := mid(models.LeftAnkle, models.RightAnkle)
	if okShoulders && okHips {
		lengths.TorsoLengthCm = toCm(math.Hypot(hx-sx, hy-sy))
	}
	if okHips && okAnkles {
		lengths.InseamCm = toCm(math.Hypot(ax-hx, ay-hy))
	}
	return lengths
}
