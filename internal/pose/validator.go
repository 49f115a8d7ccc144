package pose

import (
	"math"

	"bodyscan-go/pkg/models"
)

// IssueCode машинный код причины, по которой кадр не годится
type IssueCode string

const (
	IssueFullBodyNotVisible IssueCode = "full_body_not_visible"
	IssueMoveToCenter       IssueCode = "move_to_center"
	IssueArmsAwayFromBody   IssueCode = "arms_away_from_body"
	IssueFaceCamera         IssueCode = "face_camera"
	IssueFaceNotVisible     IssueCode = "face_not_visible"
	IssueTurnMoreToSide     IssueCode = "turn_more_to_side"
)

// Issue одна подсказка пользователю по позе
type Issue struct {
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
}

var issueMessages = map[IssueCode]string{
	IssueFullBodyNotVisible: "Full body not visible. Step back so your head and feet are in frame.",
	IssueMoveToCenter:       "Move to center of the frame.",
	IssueArmsAwayFromBody:   "Move arms away from body.",
	IssueFaceCamera:         "Face the camera directly.",
	IssueFaceNotVisible:     "Face not visible. Turn to the side so your profile faces the camera.",
	IssueTurnMoreToSide:     "Turn more to the side.",
}

func newIssue(code IssueCode) Issue {
	return Issue{Code: code, Message: issueMessages[code]}
}

// ValidationResult итог проверки позы. Замечания накапливаются, проверки не прерываются.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Thresholds пороги проверок позы
type Thresholds struct {
	FrontCenterTolerance float64 // доля ширины кадра
	ArmGapRatio          float64 // зазор локоть-бедро относительно зазора плечо-бедро
	FrontalShoulderRatio float64 // ширина плеч относительно ширины бедер
	SideShoulderMax      float64 // доля ширины кадра
	SideCenterTolerance  float64 // доля ширины кадра
}

// DefaultThresholds возвращает подобранные пороги
func DefaultThresholds() Thresholds {
	return Thresholds{
		FrontCenterTolerance: 0.15,
		ArmGapRatio:          0.3,
		FrontalShoulderRatio: 0.6,
		SideShoulderMax:      0.15,
		SideCenterTolerance:  0.20,
	}
}

// Validator решает, годится ли живой кадр для захвата
type Validator struct {
	thresholds Thresholds
}

// NewValidator создает валидатор с заданными порогами
func NewValidator(thresholds Thresholds) *Validator {
	return &Validator{thresholds: thresholds}
}

var requiredFront = []int{
	models.LeftShoulder, models.RightShoulder,
	models.LeftHip, models.RightHip,
	models.LeftKnee, models.RightKnee,
	models.LeftAnkle, models.RightAnkle,
}

// ValidateFront проверяет кадр для фронтального снимка
func (v *Validator) ValidateFront(kps models.Keypoints, imageW, imageH int) ValidationResult {
	var issues []Issue
	w := float64(imageW)

	for _, idx := range requiredFront {
		if _, ok := kps.VisibleLandmark(idx); !ok {
			issues = append(issues, newIssue(IssueFullBodyNotVisible))
			break
		}
	}

	ls, lsOK := kps.Landmark(models.LeftShoulder)
	rs, rsOK := kps.Landmark(models.RightShoulder)
	lh, lhOK := kps.Landmark(models.LeftHip)
	rh, rhOK := kps.Landmark(models.RightHip)

	if lsOK && rsOK {
		midX := (ls.X + rs.X) / 2 * w
		if math.Abs(midX-w/2) > v.thresholds.FrontCenterTolerance*w {
			issues = append(issues, newIssue(IssueMoveToCenter))
		}
	}

	if armsTooClose(kps, w, v.thresholds.ArmGapRatio) {
		issues = append(issues, newIssue(IssueArmsAwayFromBody))
	}

	if lsOK && rsOK && lhOK && rhOK {
		shoulderWidth := math.Abs(ls.X-rs.X) * w
		hipWidth := math.Abs(lh.X-rh.X) * w
		if shoulderWidth < v.thresholds.FrontalShoulderRatio*hipWidth {
			issues = append(issues, newIssue(IssueFaceCamera))
		}
	}

	return ValidationResult{Valid: len(issues) == 0, Issues: issues}
}

// armsTooClose проверяет, прижата ли хоть одна рука к корпусу.
// Сторона без плеча, локтя или бедра не оценивается.
func armsTooClose(kps models.Keypoints, w, ratio float64) bool {
	sides := [][3]int{
		{models.LeftShoulder, models.LeftElbow, models.LeftHip},
		{models.RightShoulder, models.RightElbow, models.RightHip},
	}
	for _, side := range sides {
		shoulder, sOK := kps.Landmark(side[0])
		elbow, eOK := kps.Landmark(side[1])
		hip, hOK := kps.Landmark(side[2])
		if !sOK || !eOK || !hOK {
			continue
		}
		elbowGap := math.Abs(elbow.X-hip.X) * w
		torsoGap := math.Abs(shoulder.X-hip.X) * w
		if elbowGap < ratio*torsoGap {
			return true
		}
	}
	return false
}

// ValidateSide проверяет кадр для профильного снимка
func (v *Validator) ValidateSide(kps models.Keypoints, imageW, imageH int) ValidationResult {
	var issues []Issue
	w := float64(imageW)

	// срабатывает, когда нос НЕ виден; формулировка рассчитана на профиль
	if _, ok := kps.VisibleLandmark(models.Nose); !ok {
		issues = append(issues, newIssue(IssueFaceNotVisible))
	}

	ls, lsOK := kps.Landmark(models.LeftShoulder)
	rs, rsOK := kps.Landmark(models.RightShoulder)
	if lsOK && rsOK {
		if math.Abs(ls.X-rs.X)*w > v.thresholds.SideShoulderMax*w {
			issues = append(issues, newIssue(IssueTurnMoreToSide))
		}
	}

	lh, lhOK := kps.Landmark(models.LeftHip)
	rh, rhOK := kps.Landmark(models.RightHip)
	if lhOK && rhOK {
		midX := (lh.X + rh.X) / 2 * w
		if math.Abs(midX-w/2) > v.thresholds.SideCenterTolerance*w {
			issues = append(issues, newIssue(IssueMoveToCenter))
		}
	}

	return ValidationResult{Valid: len(issues) == 0, Issues: issues}
}

// Validate вызывает проверку для заданного ракурса
func (v *Validator) Validate(view models.View, kps models.Keypoints, imageW, imageH int) ValidationResult {
	if view == models.SideView {
		return v.ValidateSide(kps, imageW, imageH)
	}
	return v.ValidateFront(kps, imageW, imageH)
}
