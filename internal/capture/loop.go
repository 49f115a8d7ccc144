package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/pose"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

// FrameBudget время на оценку одного кадра при 30fps
const FrameBudget = 33 * time.Millisecond

// ErrLoopStopped шаг захвата покинут или захват уже произошел
var ErrLoopStopped = errors.New("capture loop stopped")

// Frame выход детектора для одного кадра видео
type Frame struct {
	Keypoints   models.Keypoints `json:"keypoints"`
	ImageWidth  int              `json:"image_width"`
	ImageHeight int              `json:"image_height"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Feedback оценка одного кадра, показывается пользователю вживую
type Feedback struct {
	Valid     bool         `json:"valid"`
	Issues    []pose.Issue `json:"issues"`
	Stability float64      `json:"stability"`
	Streak    int          `json:"streak"`
	Required  int          `json:"required"`
	Captured  bool         `json:"captured"`
}

// CaptureFunc получает замороженный кадр, завершивший серию стабильности.
// false отклоняет захват, и цикл начинает новую серию.
type CaptureFunc func(view models.View, frame Frame) bool

type request struct {
	frame Frame
	reply chan result
}

type result struct {
	feedback Feedback
	err      error
}

// Loop оценивает кадры одного шага захвата в одной горутине.
// Живет от Start до Stop или до завершения родительского контекста.
type Loop struct {
	view      models.View
	validator *pose.Validator
	tracker   *pose.StreakTracker
	onCapture CaptureFunc
	logger    *logrus.Logger
	budget    time.Duration

	requests chan request
	done     chan struct{}

	startOnce sync.Once
	cancel    context.CancelFunc
	mu        sync.Mutex

	previous models.Keypoints
}

// NewLoop создает цикл для одного ракурса. onCapture вызывается в горутине цикла.
func NewLoop(view models.View, validator *pose.Validator, onCapture CaptureFunc, logger *logrus.Logger) *Loop {
	return &Loop{
		view:      view,
		validator: validator,
		tracker:   pose.NewStreakTracker(pose.RequiredStreak),
		onCapture: onCapture,
		logger:    logger,
		budget:    FrameBudget,
		requests:  make(chan request),
		done:      make(chan struct{}),
	}
}

// View ракурс, который снимает цикл
func (l *Loop) View() models.View {
	return l.view
}

// Start запускает горутину цикла. Повторный вызов ничего не делает.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		l.mu.Lock()
		l.cancel = cancel
		l.mu.Unlock()

		l.logger.Debugf("Цикл захвата запущен: view=%s", l.view)
		go l.run(ctx)
	})
}

// Stop останавливает цикл. Можно вызывать из обработчика захвата и несколько раз.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done закрывается после выхода горутины цикла
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Submit передает кадр в цикл и ждет его оценки
func (l *Loop) Submit(ctx context.Context, frame Frame) (Feedback, error) {
	l.mu.Lock()
	started := l.cancel != nil
	l.mu.Unlock()
	if !started {
		return Feedback{}, ErrLoopStopped
	}

	req := request{frame: frame, reply: make(chan result, 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return Feedback{}, ErrLoopStopped
	case <-ctx.Done():
		return Feedback{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.feedback, r.err
	case <-ctx.Done():
		return Feedback{}, ctx.Err()
	}
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer l.logger.Debugf("Цикл захвата остановлен: view=%s", l.view)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.requests:
			start := time.Now()
			fb, err := l.evaluate(req.frame)
			if elapsed := time.Since(start); elapsed > l.budget {
				l.logger.Warnf("Оценка кадра заняла %s, бюджет %s превышен (view=%s)", elapsed, l.budget, l.view)
			}
			req.reply <- result{feedback: fb, err: err}
		}
	}
}

func (l *Loop) evaluate(frame Frame) (Feedback, error) {
	const op = "capture.evaluate"

	if err := frame.Keypoints.Validate(); err != nil {
		return Feedback{}, scanerr.New(scanerr.Internal, op, err)
	}
	// кадр заморожен до смены шага, поздние кадры не оцениваются
	if l.tracker.Fired() {
		return Feedback{Streak: l.tracker.Streak(), Required: pose.RequiredStreak}, nil
	}
	if frame.ImageWidth <= 0 || frame.ImageHeight <= 0 {
		return Feedback{}, scanerr.Newf(scanerr.Internal, op, "invalid frame size %dx%d", frame.ImageWidth, frame.ImageHeight)
	}

	validation := l.validator.Validate(l.view, frame.Keypoints, frame.ImageWidth, frame.ImageHeight)
	stability := pose.CalculateStability(frame.Keypoints, l.previous, frame.ImageWidth, frame.ImageHeight)
	l.previous = frame.Keypoints.Clone()

	streak, fired := l.tracker.Observe(validation.Valid, stability)
	fb := Feedback{
		Valid:     validation.Valid,
		Issues:    validation.Issues,
		Stability: stability,
		Streak:    streak,
		Required:  pose.RequiredStreak,
		Captured:  fired,
	}

	if fired {
		l.logger.Infof("Захват выполнен: view=%s после %d стабильных кадров", l.view, streak)
		frozen := frame
		frozen.Keypoints = frame.Keypoints.Clone()
		if l.onCapture != nil && !l.onCapture(l.view, frozen) {
			l.logger.Warnf("Захват отклонен: view=%s, ждем новую серию", l.view)
			l.tracker.Reset()
			fb.Captured = false
			fb.Streak = 0
		}
	}
	return fb, nil
}
