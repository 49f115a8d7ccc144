// Package fixtures строит синтетический вывод детектора (ключевые точки и маски тела) для тестов.
package fixtures

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"bodyscan-go/pkg/models"
)

const (
	ImageWidth  = 720
	ImageHeight = 1280
	MaskWidth   = 360
	MaskHeight  = 640
)

// Point нормализованная координата изображения
type Point struct{ X, Y float64 }

var frontPose = map[int]Point{
	models.Nose:          {0.50, 0.12},
	models.LeftShoulder:  {0.64, 0.25},
	models.RightShoulder: {0.36, 0.25},
	models.LeftElbow:     {0.72, 0.38},
	models.RightElbow:    {0.28, 0.38},
	models.LeftWrist:     {0.76, 0.50},
	models.RightWrist:    {0.24, 0.50},
	models.LeftHip:       {0.58, 0.52},
	models.RightHip:      {0.42, 0.52},
	models.LeftKnee:      {0.57, 0.72},
	models.RightKnee:     {0.43, 0.72},
	models.LeftAnkle:     {0.55, 0.92},
	models.RightAnkle:    {0.45, 0.92},
}

var sidePose = map[int]Point{
	models.Nose:          {0.56, 0.12},
	models.LeftShoulder:  {0.51, 0.25},
	models.RightShoulder: {0.50, 0.25},
	models.LeftElbow:     {0.52, 0.38},
	models.RightElbow:    {0.51, 0.38},
	models.LeftWrist:     {0.52, 0.50},
	models.RightWrist:    {0.51, 0.50},
	models.LeftHip:       {0.50, 0.52},
	models.RightHip:      {0.50, 0.52},
	models.LeftKnee:      {0.51, 0.72},
	models.RightKnee:     {0.50, 0.72},
	models.LeftAnkle:     {0.50, 0.92},
	models.RightAnkle:    {0.50, 0.92},
}

// FrontKeypoints A-поза по центру кадра лицом к камере.
func FrontKeypoints() models.Keypoints {
	return build(frontPose, 0.99)
}

// SideKeypoints поза в профиль по центру кадра.
func SideKeypoints() models.Keypoints {
	return build(sidePose, 0.95)
}

func build(pose map[int]Point, visibility float64) models.Keypoints {
	kps := make(models.Keypoints, models.KeypointCount)
	nose := pose[models.Nose]
	for i := range kps {
		p, ok := pose[i]
		vis := visibility
		if !ok {
			// точки лица и кистей группируются вокруг родительской точки
			p = nose
			vis = 0.9
			if i >= models.LeftPinky && i <= models.RightThumb {
				p = pose[models.LeftWrist]
				if i%2 == 0 {
					p = pose[models.RightWrist]
				}
			}
			if i >= models.LeftHeel {
				p = pose[models.LeftAnkle]
				if i%2 == 0 {
					p = pose[models.RightAnkle]
				}
			}
		}
		kps[i] = &models.Keypoint{X: p.X, Y: p.Y, Visibility: vis, Name: models.LandmarkNames[i]}
	}
	return kps
}

// Shift сдвигает все точки на dx, dy пикселей изображения заданного размера.
func Shift(kps models.Keypoints, dx, dy float64, width, height int) models.Keypoints {
	out := kps.Clone()
	for _, kp := range out {
		if kp == nil {
			continue
		}
		kp.X += dx / float64(width)
		kp.Y += dy / float64(height)
	}
	return out
}

// FrontMask рисует фронтальный силуэт под FrontKeypoints.
func FrontMask() *models.Mask {
	m := NewMask(MaskWidth, MaskHeight)
	FillEllipse(m, Point{0.50, 0.10}, 0.06, 0.045)
	FillRect(m, 0.46, 0.14, 0.54, 0.25)
	FillRect(m, 0.38, 0.25, 0.62, 0.56)
	limbs(m, frontPose, 0.02, 0.035, 0.025)
	return m
}

// SideMask рисует силуэт в профиль под SideKeypoints.
func SideMask() *models.Mask {
	m := NewMask(MaskWidth, MaskHeight)
	FillEllipse(m, Point{0.53, 0.10}, 0.06, 0.045)
	FillRect(m, 0.46, 0.14, 0.56, 0.25)
	FillRect(m, 0.42, 0.25, 0.60, 0.56)
	limbs(m, sidePose, 0.02, 0.04, 0.03)
	return m
}

func limbs(m *models.Mask, pose map[int]Point, arm, thigh, calf float64) {
	FillSegment(m, pose[models.LeftShoulder], pose[models.LeftElbow], arm)
	FillSegment(m, pose[models.LeftElbow], pose[models.LeftWrist], arm)
	FillSegment(m, pose[models.RightShoulder], pose[models.RightElbow], arm)
	FillSegment(m, pose[models.RightElbow], pose[models.RightWrist], arm)
	FillSegment(m, pose[models.LeftHip], pose[models.LeftKnee], thigh)
	FillSegment(m, pose[models.LeftKnee], pose[models.LeftAnkle], calf)
	FillSegment(m, pose[models.RightHip], pose[models.RightKnee], thigh)
	FillSegment(m, pose[models.RightKnee], pose[models.RightAnkle], calf)
}

// NewMask возвращает пустую маску.
func NewMask(width, height int) *models.Mask {
	return &models.Mask{Width: width, Height: height, Data: make([]uint8, width*height)}
}

// FillRect закрашивает все пиксели внутри нормализованного прямоугольника.
func FillRect(m *models.Mask, x0, y0, x1, y1 float64) {
	for y := int(y0 * float64(m.Height)); y < int(y1*float64(m.Height)); y++ {
		for x := int(x0 * float64(m.Width)); x < int(x1*float64(m.Width)); x++ {
			set(m, x, y)
		}
	}
}

// FillEllipse закрашивает эллипс, радиусы нормализованы к ширине и высоте маски.
func FillEllipse(m *models.Mask, c Point, rx, ry float64) {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			nx := (float64(x)/float64(m.Width) - c.X) / rx
			ny := (float64(y)/float64(m.Height) - c.Y) / ry
			if nx*nx+ny*ny <= 1 {
				set(m, x, y)
			}
		}
	}
}

// FillSegment рисует капсулу вокруг отрезка a-b; halfWidth нормализован к ширине маски.
func FillSegment(m *models.Mask, a, b Point, halfWidth float64) {
	ax, ay := a.X*float64(m.Width), a.Y*float64(m.Height)
	bx, by := b.X*float64(m.Width), b.Y*float64(m.Height)
	r := halfWidth * float64(m.Width)
	dx, dy := bx-ax, by-ay
	length2 := dx*dx + dy*dy

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			px, py := float64(x), float64(y)
			t := 0.0
			if length2 > 0 {
				t = math.Max(0, math.Min(1, ((px-ax)*dx+(py-ay)*dy)/length2))
			}
			cx, cy := ax+t*dx, ay+t*dy
			if math.Hypot(px-cx, py-cy) <= r {
				set(m, x, y)
			}
		}
	}
}

func set(m *models.Mask, x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Data[y*m.Width+x] = 255
}

// MaskPNG кодирует маску в grayscale PNG, тело белое.
func MaskPNG(m *models.Mask) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
