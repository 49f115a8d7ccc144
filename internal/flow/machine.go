// Package flow ведет одну попытку сканирования: калибровка, два снимка с просмотром, обработка, результат.
// Machine не безопасен для конкурентного доступа; доступ упорядочивает владеющая сессия.
package flow

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

// Step шаг сценария сканирования
type Step string

const (
	StepIntro        Step = "intro"
	StepCalibration  Step = "calibration"
	StepFrontCapture Step = "front_capture"
	StepFrontReview  Step = "front_review"
	StepSideCapture  Step = "side_capture"
	StepSideReview   Step = "side_review"
	StepProcessing   Step = "processing"
	StepResults      Step = "results"
)

// CaptureStep возвращает шаг захвата для ракурса
func CaptureStep(view models.View) Step {
	if view == models.SideView {
		return StepSideCapture
	}
	return StepFrontCapture
}

// ViewOf возвращает ракурс шага захвата или просмотра
func ViewOf(step Step) (models.View, bool) {
	switch step {
	case StepFrontCapture, StepFrontReview:
		return models.FrontView, true
	case StepSideCapture, StepSideReview:
		return models.SideView, true
	}
	return "", false
}

// Имена действий для ошибок переходов
const (
	ActionStart          = "start"
	ActionSubmitSubject  = "submit_subject"
	ActionCapture        = "capture"
	ActionRetake         = "retake"
	ActionAdvance        = "advance"
	ActionAttachImage    = "attach_image"
	ActionSubmit         = "submit"
	ActionSetCalibration = "set_calibration"
	ActionComplete       = "complete"
	ActionFail           = "fail"
	ActionRetry          = "retry"
	ActionRestart        = "restart"
)

// TransitionError действие, недопустимое на текущем шаге
type TransitionError struct {
	From   Step
	Action string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s from step %s: %s", e.Action, e.From, e.Reason)
	}
	return fmt.Sprintf("cannot %s from step %s", e.Action, e.From)
}

// Capture замороженный кадр со снимком и маской, приложенными при просмотре
type Capture struct {
	Keypoints   models.Keypoints `json:"keypoints"`
	ImageWidth  int              `json:"image_width"`
	ImageHeight int              `json:"image_height"`
	Image       []byte           `json:"-"`
	ImageName   string           `json:"image_name,omitempty"`
	Mask        *models.Mask     `json:"mask,omitempty"`
	Depth       []byte           `json:"-"`
	Intrinsics  string           `json:"camera_intrinsics,omitempty"`
}

// Attachment загрузки для просматриваемого снимка. Depth и Intrinsics необязательные данные LiDAR.
type Attachment struct {
	Image      []byte
	ImageName  string
	Mask       *models.Mask
	Depth      []byte
	Intrinsics string
}

// State снимок попытки сканирования одной сессии
type State struct {
	Step        Step                    `json:"step"`
	Subject     *models.Subject         `json:"subject,omitempty"`
	Calibration *models.CalibrationData `json:"calibration,omitempty"`
	Front       *Capture                `json:"front,omitempty"`
	Side        *Capture                `json:"side,omitempty"`
	Result      *models.ScanResult      `json:"result,omitempty"`
	Err         error                   `json:"-"`
}

var validate = validator.New()

// ValidateSubject проверяет диапазоны данных пользователя на шаге калибровки
func ValidateSubject(s models.Subject) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}
	return nil
}

// Machine машина состояний сценария сканирования
type Machine struct {
	state State
}

// NewMachine создает машину на шаге intro
func NewMachine() *Machine {
	return &Machine{state: State{Step: StepIntro}}
}

// Step текущий шаг
func (m *Machine) Step() Step {
	return m.state.Step
}

// State возвращает копию текущего состояния
func (m *Machine) State() State {
	return m.state
}

func (m *Machine) deny(action string) error {
	return &TransitionError{From: m.state.Step, Action: action}
}

func (m *Machine) expect(action string, steps ...Step) error {
	for _, s := range steps {
		if m.state.Step == s {
			return nil
		}
	}
	return m.deny(action)
}

// Start intro -> calibration
func (m *Machine) Start() error {
	if err := m.expect(ActionStart, StepIntro); err != nil {
		return err
	}
	m.state.Step = StepCalibration
	return nil
}

// SubmitSubject calibration -> front_capture, если данные прошли проверку
func (m *Machine) SubmitSubject(s models.Subject) error {
	if err := m.expect(ActionSubmitSubject, StepCalibration); err != nil {
		return err
	}
	if err := ValidateSubject(s); err != nil {
		return err
	}
	m.state.Subject = &s
	m.state.Step = StepFrontCapture
	return nil
}

// CaptureFront front_capture -> front_review с замороженным кадром
func (m *Machine) CaptureFront(c Capture) error {
	if err := m.expect(ActionCapture, StepFrontCapture); err != nil {
		return err
	}
	m.state.Front = &c
	m.state.Step = StepFrontReview
	return nil
}

// RetakeFront front_review -> front_capture
func (m *Machine) RetakeFront() error {
	if err := m.expect(ActionRetake, StepFrontReview); err != nil {
		return err
	}
	m.state.Front = nil
	m.state.Step = StepFrontCapture
	return nil
}

// AdvanceToSide front_review -> side_capture
func (m *Machine) AdvanceToSide() error {
	if err := m.expect(ActionAdvance, StepFrontReview); err != nil {
		return err
	}
	m.state.Step = StepSideCapture
	return nil
}

// CaptureSide side_capture -> side_review с замороженным кадром
func (m *Machine) CaptureSide(c Capture) error {
	if err := m.expect(ActionCapture, StepSideCapture); err != nil {
		return err
	}
	m.state.Side = &c
	m.state.Step = StepSideReview
	return nil
}

// RetakeSide side_review -> side_capture
func (m *Machine) RetakeSide() error {
	if err := m.expect(ActionRetake, StepSideReview); err != nil {
		return err
	}
	m.state.Side = nil
	m.state.Step = StepSideCapture
	return nil
}

// Capture передает событие захвата текущему шагу захвата
func (m *Machine) Capture(c Capture) error {
	switch m.state.Step {
	case StepFrontCapture:
		return m.CaptureFront(c)
	case StepSideCapture:
		return m.CaptureSide(c)
	}
	return m.deny(ActionCapture)
}

// Retake вызывает пересъемку текущего шага просмотра
func (m *Machine) Retake() error {
	switch m.state.Step {
	case StepFrontReview:
		return m.RetakeFront()
	case StepSideReview:
		return m.RetakeSide()
	}
	return m.deny(ActionRetake)
}

// AttachImage сохраняет снимок, маску тела и данные глубины просматриваемого кадра.
// Маска больше захваченного кадра считается ошибкой сегментации.
func (m *Machine) AttachImage(view models.View, a Attachment) error {
	var c *Capture
	switch {
	case view == models.FrontView && m.state.Step == StepFrontReview:
		c = m.state.Front
	case view == models.SideView && m.state.Step == StepSideReview:
		c = m.state.Side
	default:
		return m.deny(ActionAttachImage)
	}
	if c == nil {
		return &TransitionError{From: m.state.Step, Action: ActionAttachImage, Reason: "no capture to attach to"}
	}
	if a.Mask != nil && c.ImageWidth > 0 && c.ImageHeight > 0 &&
		(a.Mask.Width > c.ImageWidth || a.Mask.Height > c.ImageHeight) {
		return scanerr.Newf(scanerr.SegmentationFailure, "flow.AttachImage",
			"mask %dx%d is larger than image %dx%d", a.Mask.Width, a.Mask.Height, c.ImageWidth, c.ImageHeight)
	}
	c.Image = a.Image
	c.ImageName = a.ImageName
	c.Mask = a.Mask
	c.Depth = a.Depth
	c.Intrinsics = a.Intrinsics
	return nil
}

// Submit side_review -> processing. Единственный вход в вычисления.
func (m *Machine) Submit() error {
	if err := m.expect(ActionSubmit, StepSideReview); err != nil {
		return err
	}
	if m.state.Front == nil || m.state.Side == nil || m.state.Subject == nil {
		return &TransitionError{From: m.state.Step, Action: ActionSubmit, Reason: "captures incomplete"}
	}
	m.state.Err = nil
	m.state.Step = StepProcessing
	return nil
}

// SetCalibration записывает масштаб. Задается один раз за сессию.
func (m *Machine) SetCalibration(c models.CalibrationData) error {
	if err := m.expect(ActionSetCalibration, StepProcessing); err != nil {
		return err
	}
	if m.state.Calibration != nil {
		return &TransitionError{From: m.state.Step, Action: ActionSetCalibration, Reason: "calibration already set"}
	}
	m.state.Calibration = &c
	return nil
}

// Complete processing -> results
func (m *Machine) Complete(result *models.ScanResult) error {
	if err := m.expect(ActionComplete, StepProcessing); err != nil {
		return err
	}
	m.state.Result = result
	m.state.Err = nil
	m.state.Step = StepResults
	return nil
}

// Fail оставляет машину в processing с записанной ошибкой
func (m *Machine) Fail(err error) error {
	if e := m.expect(ActionFail, StepProcessing); e != nil {
		return e
	}
	m.state.Err = err
	return nil
}

// Retry сбрасывает ошибку обработки, чтобы обработку можно было запустить снова
func (m *Machine) Retry() error {
	if err := m.expect(ActionRetry, StepProcessing); err != nil {
		return err
	}
	if m.state.Err == nil {
		return &TransitionError{From: m.state.Step, Action: ActionRetry, Reason: "processing has not failed"}
	}
	m.state.Err = nil
	return nil
}

// Restart processing (с ошибкой) -> front_capture, оба снимка отбрасываются
func (m *Machine) Restart() error {
	if err := m.expect(ActionRestart, StepProcessing); err != nil {
		return err
	}
	if m.state.Err == nil {
		return &TransitionError{From: m.state.Step, Action: ActionRestart, Reason: "processing has not failed"}
	}
	m.state.Front = nil
	m.state.Side = nil
	m.state.Err = nil
	m.state.Step = StepFrontCapture
	return nil
}
