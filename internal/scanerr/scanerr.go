package scanerr

import (
	"errors"
	"fmt"
)

// Kind класс ошибки сканирования
type Kind string

const (
	// MissingLandmarks без носа и обеих лодыжек калибровка невозможна
	MissingLandmarks Kind = "missing_landmarks"
	// InvalidPose поза не прошла проверку, пользователь может встать заново
	InvalidPose Kind = "invalid_pose"
	// SegmentationFailure маска тела пустая или отсутствует
	SegmentationFailure Kind = "segmentation_failure"
	// CalibrationImplausible масштаб вне допустимого диапазона
	CalibrationImplausible Kind = "calibration_implausible"
	// NetworkTimeout удаленный сервис обработки не ответил вовремя
	NetworkTimeout Kind = "network_timeout"
	// NetworkUnavailable удаленный сервис обработки недоступен
	NetworkUnavailable Kind = "network_unavailable"
	// Internal нарушение контракта или неожиданное состояние
	Internal Kind = "internal"
)

// Error ошибка сканирования с классом и операцией, в которой она возникла
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is совпадает с любой *Error того же класса, поэтому errors.Is работает с ErrMissingLandmarks и т.п.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Err == nil && e.Kind == t.Kind
}

// New создает ошибку заданного класса
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf создает ошибку заданного класса с форматированным сообщением
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf возвращает класс err, Internal если класса нет
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// InternalMessage текст для клиента вместо деталей внутренней ошибки
const InternalMessage = "Internal server error"

// PublicMessage возвращает текст err для клиента. Детали внутренних ошибок не раскрываются.
func PublicMessage(err error) string {
	if KindOf(err) == Internal {
		return InternalMessage
	}
	return err.Error()
}

var (
	ErrMissingLandmarks       = &Error{Kind: MissingLandmarks}
	ErrInvalidPose            = &Error{Kind: InvalidPose}
	ErrSegmentationFailure    = &Error{Kind: SegmentationFailure}
	ErrCalibrationImplausible = &Error{Kind: CalibrationImplausible}
	ErrNetworkTimeout         = &Error{Kind: NetworkTimeout}
	ErrNetworkUnavailable     = &Error{Kind: NetworkUnavailable}
	ErrInternal               = &Error{Kind: Internal}
)
