package silhouette

import (
	"math"

	"bodyscan-go/internal/regions"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

const (
	// MinWidthPixels более узкие строки считаются шумом
	MinWidthPixels = 5
	// anchorSearch доля ширины маски для поиска тела, если опорный столбец в него не попал
	anchorSearch = 0.05
)

// Analyzer превращает маску тела в ширины зон для одного ракурса
type Analyzer struct {
	profiles *regions.Store
}

// NewAnalyzer создает анализатор, который берет строки сканирования из хранилища профилей
func NewAnalyzer(profiles *regions.Store) *Analyzer {
	return &Analyzer{profiles: profiles}
}

// Analyze измеряет все зоны, опорные точки которых есть в kps.
// Ширины в пикселях маски; неизмеримые зоны пропускаются.
func (a *Analyzer) Analyze(mask *models.Mask, kps models.Keypoints) ([]models.SilhouetteWidth, error) {
	const op = "silhouette.Analyze"

	if err := checkMask(op, mask); err != nil {
		return nil, err
	}
	if err := kps.Validate(); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, err)
	}

	var widths []models.SilhouetteWidth
	for _, p := range a.profiles.All() {
		w, ok := measure(mask, kps, p)
		if !ok {
			continue
		}
		widths = append(widths, w)
	}
	return widths, nil
}

func checkMask(op string, mask *models.Mask) error {
	if mask == nil || mask.Width <= 0 || mask.Height <= 0 {
		return scanerr.Newf(scanerr.SegmentationFailure, op, "no body mask")
	}
	if len(mask.Data) != mask.Width*mask.Height {
		return scanerr.Newf(scanerr.Internal, op, "mask data %d bytes, want %dx%d",
			len(mask.Data), mask.Width, mask.Height)
	}
	for _, v := range mask.Data {
		if v != 0 {
			return nil
		}
	}
	return scanerr.Newf(scanerr.SegmentationFailure, op, "body mask is empty")
}

func measure(mask *models.Mask, kps models.Keypoints, p regions.Profile) (models.SilhouetteWidth, bool) {
	from, ok := anchor(kps, p.From)
	if !ok {
		return models.SilhouetteWidth{}, false
	}
	to, ok := anchor(kps, p.To)
	if !ok {
		return models.SilhouetteWidth{}, false
	}

	// линейная интерполяция между опорными точками в нормированных координатах
	x := from.X + (to.X-from.X)*p.Ratio
	y := from.Y + (to.Y-from.Y)*p.Ratio

	row := int(y * float64(mask.Height))
	col := int(x * float64(mask.Width))
	if row < 0 || row >= mask.Height {
		return models.SilhouetteWidth{}, false
	}

	var left, right int
	if p.Scan == regions.ScanFull {
		left, right, ok = rowExtent(mask, row)
	} else {
		left, right, ok = runAt(mask, row, col)
	}
	if !ok {
		return models.SilhouetteWidth{}, false
	}

	width := float64(right - left)
	if width < MinWidthPixels {
		return models.SilhouetteWidth{}, false
	}

	return models.SilhouetteWidth{
		Region:      p.Region,
		YPosition:   row,
		LeftEdge:    left,
		RightEdge:   right,
		WidthPixels: width,
	}, true
}

// anchor находит точку по имени или виртуальную середину
func anchor(kps models.Keypoints, name string) (models.Keypoint, bool) {
	switch name {
	case regions.ShoulderMid:
		return midpoint(kps, models.LeftShoulder, models.RightShoulder)
	case regions.HipMid:
		return midpoint(kps, models.LeftHip, models.RightHip)
	case regions.KneeMid:
		return midpoint(kps, models.LeftKnee, models.RightKnee)
	}
	idx, ok := models.LandmarkIndex(name)
	if !ok {
		return models.Keypoint{}, false
	}
	return kps.Landmark(idx)
}

func midpoint(kps models.Keypoints, a, b int) (models.Keypoint, bool) {
	ka, ok := kps.Landmark(a)
	if !ok {
		return models.Keypoint{}, false
	}
	kb, ok := kps.Landmark(b)
	if !ok {
		return models.Keypoint{}, false
	}
	return models.Keypoint{X: (ka.X + kb.X) / 2, Y: (ka.Y + kb.Y) / 2}, true
}

// rowExtent крайние левый и правый пиксели тела в строке
func rowExtent(mask *models.Mask, row int) (int, int, bool) {
	left, right := -1, -1
	for x := 0; x < mask.Width; x++ {
		if mask.At(x, row) {
			if left < 0 {
				left = x
			}
			right = x
		}
	}
	return left, right, left >= 0
}

// runAt непрерывный участок тела, содержащий col, или ближайший к нему в окне поиска
func runAt(mask *models.Mask, row, col int) (int, int, bool) {
	start, ok := nearestBody(mask, row, col)
	if !ok {
		return 0, 0, false
	}

	left, right := start, start
	for left > 0 && mask.At(left-1, row) {
		left--
	}
	for right < mask.Width-1 && mask.At(right+1, row) {
		right++
	}
	return left, right, true
}

func nearestBody(mask *models.Mask, row, col int) (int, bool) {
	window := int(math.Ceil(anchorSearch * float64(mask.Width)))
	for d := 0; d <= window; d++ {
		if mask.At(col-d, row) {
			return col - d, true
		}
		if mask.At(col+d, row) {
			return col + d, true
		}
	}
	return 0, false
}

// CmPerMaskPixel переводит пиксели маски в сантиметры для маски, совмещенной с кадром ширины imageW
func CmPerMaskPixel(mask *models.Mask, imageW int, cal *models.CalibrationData) float64 {
	if mask == nil || mask.Width == 0 || cal == nil || cal.PixelsPerCm <= 0 {
		return 0
	}
	return float64(imageW) / float64(mask.Width) / cal.PixelsPerCm
}

// Pair объединяет фронтальные и боковые ширины одной зоны.
// Зона остается, только если оба ракурса дали положительную ширину.
func Pair(front, side []models.SilhouetteWidth, frontScale, sideScale float64) map[models.MeasurementRegion]models.RegionWidths {
	sideByRegion := make(map[models.MeasurementRegion]float64, len(side))
	for _, s := range side {
		sideByRegion[s.Region] = s.WidthPixels
	}

	paired := make(map[models.MeasurementRegion]models.RegionWidths)
	for _, f := range front {
		s, ok := sideByRegion[f.Region]
		if !ok {
			continue
		}
		frontal := f.WidthPixels * frontScale
		sagittal := s * sideScale
		if frontal <= 0 || sagittal <= 0 {
			continue
		}
		paired[f.Region] = models.RegionWidths{FrontalCm: frontal, SagittalCm: sagittal}
	}
	return paired
}
