package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/calibration"
	"bodyscan-go/internal/capture"
	"bodyscan-go/internal/flow"
	"bodyscan-go/internal/pose"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

// ErrSessionNotFound неизвестный или истекший id сессии
var ErrSessionNotFound = errors.New("session not found")

// ErrResultNotReady сессия еще не дошла до результата
var ErrResultNotReady = errors.New("result not ready")

// DefaultSessionTTL время простоя, после которого сессия истекает
const DefaultSessionTTL = 15 * time.Minute

// SessionService реестр изолированных сессий сканирования
type SessionService struct {
	engine    Engine
	validator *pose.Validator
	logger    *logrus.Logger
	ttl       time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	byClient map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionService создает реестр сессий
func NewSessionService(engine Engine, validator *pose.Validator, ttl time.Duration, logger *logrus.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		engine:    engine,
		validator: validator,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		byClient:  make(map[string]string),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Engine движок обработки, на котором работают сессии
func (s *SessionService) Engine() Engine {
	return s.engine
}

// Create начинает новую сессию. У клиента не больше одной живой сессии, предыдущая отбрасывается.
func (s *SessionService) Create(clientID string) *Session {
	ctx, cancel := context.WithCancel(s.ctx)
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		CreatedAt: now,
		lastSeen:  now,
		machine:   flow.NewMachine(),
		svc:       s,
		ctx:       ctx,
		cancel:    cancel,
	}

	s.mu.Lock()
	var previous *Session
	if clientID != "" {
		if prevID, ok := s.byClient[clientID]; ok {
			previous = s.sessions[prevID]
			delete(s.sessions, prevID)
		}
		s.byClient[clientID] = sess.ID
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if previous != nil {
		s.logger.Infof("Отбрасываем сессию %s клиента %s", previous.ID, clientID)
		previous.close()
	}
	s.logger.Infof("Сессия %s создана", sess.ID)
	return sess
}

// Get возвращает живую сессию и отмечает обращение
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete удаляет сессию и отменяет все, что она выполняет
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		s.remove(sess)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.close()
	s.logger.Infof("Сессия %s удалена", id)
	return nil
}

// remove убирает сессию из индексов. Вызывающий держит s.mu.
func (s *SessionService) remove(sess *Session) {
	delete(s.sessions, sess.ID)
	if s.byClient[sess.ClientID] == sess.ID {
		delete(s.byClient, sess.ClientID)
	}
}

// Count число живых сессий
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep завершает сессии, простаивающие дольше TTL. Сессии в обработке остаются.
func (s *SessionService) Sweep() int {
	now := s.now()
	var expired []*Session

	s.mu.Lock()
	for _, sess := range s.sessions {
		if sess.idle(now) > s.ttl && !sess.isProcessing() {
			s.remove(sess)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
		s.logger.Infof("Сессия %s истекла", sess.ID)
	}
	return len(expired)
}

// Run чистит истекшие сессии до завершения ctx
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debugf("Истекло сессий: %d", n)
			}
		}
	}
}

// Shutdown закрывает все сессии и ждет завершения запущенной обработки
func (s *SessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*Session)
	s.byClient = make(map[string]string)
	s.mu.Unlock()

	for _, sess := range all {
		sess.close()
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session одна попытка сканирования. Безопасна для конкурентного доступа.
type Session struct {
	ID        string
	ClientID  string
	CreatedAt time.Time

	svc    *SessionService
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	machine    *flow.Machine
	loop       *capture.Loop
	lastSeen   time.Time
	processing bool
	finished   chan struct{}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) isProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

func (s *Session) close() {
	s.cancel()
	s.mu.Lock()
	if s.loop != nil {
		s.loop.Stop()
		s.loop = nil
	}
	s.mu.Unlock()
}

// Step текущий шаг сценария
func (s *Session) Step() flow.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Step()
}

// View снимок для API
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.machine.State()
	v := SessionView{
		ID:          s.ID,
		ClientID:    s.ClientID,
		Step:        st.Step,
		Subject:     st.Subject,
		Calibration: st.Calibration,
		Front:       captureView(st.Front),
		Side:        captureView(st.Side),
		Processing:  s.processing,
		Result:      st.Result,
		CreatedAt:   s.CreatedAt,
		LastSeenAt:  s.lastSeen,
	}
	if st.Calibration != nil {
		check := calibration.ValidateCalibration(st.Calibration)
		v.CalibrationCheck = &check
	}
	if st.Err != nil {
		v.Error = &ErrorView{Kind: scanerr.KindOf(st.Err), Message: scanerr.PublicMessage(st.Err)}
	}
	return v
}

func captureView(c *flow.Capture) *CaptureView {
	if c == nil {
		return nil
	}
	return &CaptureView{
		ImageWidth:  c.ImageWidth,
		ImageHeight: c.ImageHeight,
		HasImage:    len(c.Image) > 0,
		HasMask:     c.Mask != nil,
		HasDepth:    len(c.Depth) > 0,
		Visible:     c.Keypoints.VisibleCount(),
	}
}

// Start intro -> calibration
func (s *Session) Start() error {
	return s.transition(s.machine.Start)
}

// SubmitSubject сохраняет данные пользователя и открывает фронтальный захват
func (s *Session) SubmitSubject(subject models.Subject) error {
	return s.transition(func() error { return s.machine.SubmitSubject(subject) })
}

// Retake возвращает с шага просмотра на его шаг захвата
func (s *Session) Retake() error {
	return s.transition(s.machine.Retake)
}

// Advance front_review -> side_capture
func (s *Session) Advance() error {
	return s.transition(s.machine.AdvanceToSide)
}

// Restart заново открывает фронтальный захват после неудачной обработки
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return &flow.TransitionError{From: s.machine.Step(), Action: flow.ActionRestart, Reason: "processing in progress"}
	}
	if err := s.machine.Restart(); err != nil {
		return err
	}
	s.syncLoop()
	return nil
}

// AttachImage сохраняет снимок, маску и данные глубины просматриваемого кадра
func (s *Session) AttachImage(view models.View, a flow.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.AttachImage(view, a)
}

func (s *Session) transition(action func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := action(); err != nil {
		return err
	}
	s.syncLoop()
	return nil
}

// syncLoop держит цикл захвата ровно пока активен шаг захвата. Вызывающий держит s.mu.
func (s *Session) syncLoop() {
	step := s.machine.Step()
	view, isView := flow.ViewOf(step)
	capturing := isView && step == flow.CaptureStep(view)

	if s.loop != nil && (!capturing || s.loop.View() != view) {
		s.loop.Stop()
		s.loop = nil
	}
	if capturing && s.loop == nil {
		s.loop = capture.NewLoop(view, s.svc.validator, s.onCapture, s.svc.logger)
		s.loop.Start(s.ctx)
	}
}

// onCapture вызывается в горутине цикла, когда серия стабильности завершена
func (s *Session) onCapture(view models.View, frame capture.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Step() != flow.CaptureStep(view) {
		return false
	}
	err := s.machine.Capture(flow.Capture{
		Keypoints:   frame.Keypoints,
		ImageWidth:  frame.ImageWidth,
		ImageHeight: frame.ImageHeight,
	})
	if err != nil {
		s.svc.logger.Errorf("Сессия %s: захват отклонен: %v", s.ID, err)
		return false
	}
	s.svc.logger.Infof("Сессия %s: снимок %s получен", s.ID, view)
	s.syncLoop()
	return true
}

// SubmitFrame передает живой кадр активному шагу захвата
func (s *Session) SubmitFrame(ctx context.Context, frame capture.Frame) (capture.Feedback, error) {
	s.mu.Lock()
	loop := s.loop
	step := s.machine.Step()
	s.mu.Unlock()

	if loop == nil {
		return capture.Feedback{}, &flow.TransitionError{From: step, Action: flow.ActionCapture, Reason: "no capture step active"}
	}
	return loop.Submit(ctx, frame)
}

// Submit side_review -> processing и запускает движок в фоне
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.machine.Submit(); err != nil {
		return err
	}
	s.syncLoop()
	s.launch()
	return nil
}

// Retry снова запускает обработку по явному запросу пользователя
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return &flow.TransitionError{From: s.machine.Step(), Action: flow.ActionRetry, Reason: "processing in progress"}
	}
	if err := s.machine.Retry(); err != nil {
		return err
	}
	s.launch()
	return nil
}

// launch один раз считает калибровку и запускает движок. Вызывающий держит s.mu.
func (s *Session) launch() {
	st := s.machine.State()
	input := ScanInput{
		Subject:     *st.Subject,
		Calibration: st.Calibration,
		Front:       *st.Front,
		Side:        *st.Side,
	}

	if input.Calibration == nil {
		cal, err := calibration.CalibrateFromHeight(st.Front.Keypoints, st.Front.ImageWidth, st.Front.ImageHeight, *st.Subject)
		if err != nil {
			s.svc.logger.Warnf("Сессия %s: ошибка калибровки: %v", s.ID, err)
			input.CalibrationErr = err
		} else if err := s.machine.SetCalibration(*cal); err == nil {
			input.Calibration = cal
		}
	}

	s.processing = true
	s.finished = make(chan struct{})
	finished := s.finished

	engine := s.svc.engine
	s.svc.wg.Add(1)
	go func() {
		defer s.svc.wg.Done()
		defer close(finished)

		s.svc.logger.Infof("Сессия %s: обработка движком %s", s.ID, engine.Name())
		result, err := engine.Process(s.ctx, input)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.processing = false
		if err != nil {
			s.svc.logger.Errorf("Сессия %s: ошибка обработки: %v", s.ID, err)
			_ = s.machine.Fail(err)
			return
		}
		_ = s.machine.Complete(result)
		s.svc.logger.Infof("Сессия %s: результат готов, уверенность %.2f", s.ID, result.ConfidenceScore)
	}()
}

// Wait ждет завершения запущенной обработки. Без обработки возвращается сразу.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished == nil {
		return nil
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result итоговый результат, когда сессия дошла до шага results
func (s *Session) Result() (*models.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.machine.State()
	if st.Step != flow.StepResults || st.Result == nil {
		if st.Err != nil {
			return nil, st.Err
		}
		return nil, ErrResultNotReady
	}
	return st.Result, nil
}
