package models

import (
	"fmt"
	"math"
)

// KeypointCount количество точек, которые выдает детектор позы
const KeypointCount = 33

// MinVisibility порог видимости, с которого точка считается видимой
const MinVisibility = 0.5

// Индексы точек детектора позы. Порядок задан контрактом с детектором.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// LandmarkNames имена точек по индексу
var LandmarkNames = [KeypointCount]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer", "right_eye_inner", "right_eye",
	"right_eye_outer", "left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow", "left_wrist", "right_wrist",
	"left_pinky", "right_pinky", "left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee", "left_ankle", "right_ankle",
	"left_heel", "right_heel", "left_foot_index", "right_foot_index",
}

// LandmarkIndex возвращает индекс точки по имени
func LandmarkIndex(name string) (int, bool) {
	for i, n := range LandmarkNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Keypoint одна точка позы. X и Y нормированы в [0,1]
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
	Name       string  `json:"name,omitempty"`
}

// Visible проверяет, проходит ли точка порог видимости
func (k Keypoint) Visible() bool {
	return k.Visibility >= MinVisibility
}

// Keypoints выход детектора для одного кадра. nil означает отсутствующую точку.
type Keypoints []*Keypoint

// Landmark возвращает точку idx и признак ее наличия
func (k Keypoints) Landmark(idx int) (Keypoint, bool) {
	if idx < 0 || idx >= len(k) || k[idx] == nil {
		return Keypoint{}, false
	}
	return *k[idx], true
}

// VisibleLandmark возвращает точку idx, только если она есть и видима
func (k Keypoints) VisibleLandmark(idx int) (Keypoint, bool) {
	kp, ok := k.Landmark(idx)
	if !ok || !kp.Visible() {
		return Keypoint{}, false
	}
	return kp, true
}

// VisibleCount считает точки с видимостью >= MinVisibility
func (k Keypoints) VisibleCount() int {
	n := 0
	for i := range k {
		if _, ok := k.VisibleLandmark(i); ok {
			n++
		}
	}
	return n
}

// Validate проверяет контракт детектора: 33 точки, конечные координаты, видимость в [0,1]
func (k Keypoints) Validate() error {
	if len(k) != KeypointCount {
		return fmt.Errorf("expected %d keypoints, got %d", KeypointCount, len(k))
	}
	for i, kp := range k {
		if kp == nil {
			continue
		}
		if kp.Visibility < 0 || kp.Visibility > 1 {
			return fmt.Errorf("keypoint %d (%s): visibility %.3f outside [0,1]", i, LandmarkNames[i], kp.Visibility)
		}
		if math.IsNaN(kp.X) || math.IsNaN(kp.Y) || math.IsInf(kp.X, 0) || math.IsInf(kp.Y, 0) {
			return fmt.Errorf("keypoint %d (%s): non-finite coordinates", i, LandmarkNames[i])
		}
	}
	return nil
}

// Clone возвращает глубокую копию, ею замораживается кадр при захвате
func (k Keypoints) Clone() Keypoints {
	out := make(Keypoints, len(k))
	for i, kp := range k {
		if kp != nil {
			c := *kp
			out[i] = &c
		}
	}
	return out
}
