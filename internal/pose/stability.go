package pose

import (
	"math"

	"bodyscan-go/pkg/models"
)

const (
	// MaxStableDisplacement среднее смещение в пикселях, при котором стабильность падает до нуля
	MaxStableDisplacement = 5.0
	// StableThreshold стабильность, которую кадр должен превысить, чтобы продлить серию
	StableThreshold = 0.8
	// RequiredStreak число стабильных кадров подряд для захвата
	RequiredStreak = 45
)

// CalculateStability оценивает неподвижность между кадрами в [0,1].
// Сравниваются только точки, видимые в обоих кадрах; без общих точек оценка 0.
func CalculateStability(current, previous models.Keypoints, imageW, imageH int) float64 {
	if previous == nil {
		return 0
	}

	w, h := float64(imageW), float64(imageH)
	total := 0.0
	pairs := 0
	for i := range current {
		cur, ok := current.VisibleLandmark(i)
		if !ok {
			continue
		}
		prev, ok := previous.VisibleLandmark(i)
		if !ok {
			continue
		}
		total += math.Hypot((cur.X-prev.X)*w, (cur.Y-prev.Y)*h)
		pairs++
	}
	if pairs == 0 {
		return 0
	}

	avg := total / float64(pairs)
	return math.Max(0, 1-avg/MaxStableDisplacement)
}

// StreakTracker считает годные кадры подряд и срабатывает один раз
type StreakTracker struct {
	required int
	streak   int
	fired    bool
}

// NewStreakTracker создает счетчик, срабатывающий после required стабильных кадров подряд
func NewStreakTracker(required int) *StreakTracker {
	return &StreakTracker{required: required}
}

// Observe учитывает один кадр. Возвращает текущую серию и true ровно один раз,
// на кадре, который завершает серию.
func (t *StreakTracker) Observe(valid bool, stability float64) (int, bool) {
	if t.fired {
		return t.streak, false
	}
	if !valid || stability <= StableThreshold {
		t.streak = 0
		return 0, false
	}

	t.streak++
	if t.streak >= t.required {
		t.fired = true
		return t.streak, true
	}
	return t.streak, false
}

// Streak текущее число стабильных кадров подряд
func (t *StreakTracker) Streak() int {
	return t.streak
}

// Fired сообщает, был ли уже захват
func (t *StreakTracker) Fired() bool {
	return t.fired
}

// Reset обнуляет серию и снова взводит счетчик
func (t *StreakTracker) Reset() {
	t.streak = 0
	t.fired = false
}
