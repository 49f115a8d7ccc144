package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodyscan-go/internal/capture"
	"bodyscan-go/internal/fixtures"
	"bodyscan-go/internal/flow"
	"bodyscan-go/internal/middleware"
	"bodyscan-go/internal/pose"
	"bodyscan-go/internal/regions"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/internal/service"
	"bodyscan-go/internal/silhouette"
	"bodyscan-go/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEngine struct {
	mu       sync.Mutex
	last     service.ScanInput
	err      error
	notReady error
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Ready(ctx context.Context) error { return e.notReady }

func (e *stubEngine) Process(ctx context.Context, input service.ScanInput) (*models.ScanResult, error) {
	e.mu.Lock()
	e.last = input
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return &models.ScanResult{ConfidenceScore: 0.77, ScanTier: models.TierPhoto}, nil
}

type testServer struct {
	router   *gin.Engine
	sessions *service.SessionService
}

func newTestServer(engine service.Engine) *testServer {
	logger, _ := test.NewNullLogger()
	sessions := service.NewSessionService(engine, pose.NewValidator(pose.DefaultThresholds()), time.Minute, logger)
	profiles := service.NewProfileService(nil, regions.NewStore(), logger)

	router := gin.New()
	router.Use(middleware.RequestID())
	NewSessionHandler(sessions, nil, logger).RegisterRoutes(router)
	NewProfileHandler(profiles, logger).RegisterRoutes(router)
	NewHealthHandler(engine, nil, "test", logger).RegisterRoutes(router)
	return &testServer{router: router, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path string, image []byte, mask []byte) *httptest.ResponseRecorder {
	t.Helper()
	files := map[string][]byte{"image": image}
	if mask != nil {
		files["mask"] = mask
	}
	return s.uploadForm(t, path, files, nil)
}

func (s *testServer) uploadForm(t *testing.T, path string, files map[string][]byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile(name, name+".bin")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) create(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", service.CreateSessionRequest{ClientID: "tablet"})
	require.Equal(t, http.StatusCreated, w.Code)
	view := decode[service.SessionView](t, w)
	assert.Equal(t, flow.StepIntro, view.Step)
	return view.ID
}

func (s *testServer) feed(t *testing.T, id string, kps models.Keypoints) {
	t.Helper()
	frame := capture.Frame{Keypoints: kps, ImageWidth: fixtures.ImageWidth, ImageHeight: fixtures.ImageHeight}
	var fb capture.Feedback
	for i := 0; i <= pose.RequiredStreak; i++ {
		w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/frames", frame)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		fb = decode[capture.Feedback](t, w)
	}
	require.True(t, fb.Captured)
}

func (s *testServer) toSideReview(t *testing.T, id string) {
	t.Helper()
	base := "/api/v1/sessions/" + id

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/start", nil).Code)
	subject := models.Subject{HeightCm: 175, WeightKg: 80, Age: 35, Sex: models.Male}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/subject", subject).Code)

	s.feed(t, id, fixtures.FrontKeypoints())
	frontMask, err := fixtures.MaskPNG(fixtures.FrontMask())
	require.NoError(t, err)
	w := s.upload(t, base+"/captures/front", []byte("jpeg"), frontMask)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[service.SessionView](t, w).Front.HasMask)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/advance", nil).Code)
	s.feed(t, id, fixtures.SideKeypoints())
	sideMask, err := fixtures.MaskPNG(fixtures.SideMask())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, s.upload(t, base+"/captures/side", []byte("jpeg"), sideMask).Code)
}

func (s *testServer) wait(t *testing.T, id string) {
	t.Helper()
	sess, err := s.sessions.Get(id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sess.Wait(ctx))
}

func TestScanFlowOverHTTP(t *testing.T) {
	s := newTestServer(&stubEngine{})
	id := s.create(t)
	base := "/api/v1/sessions/" + id

	s.toSideReview(t, id)

	w := s.do(t, http.MethodGet, base+"/result", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "result before submit")

	w = s.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	s.wait(t, id)

	w = s.do(t, http.MethodGet, base+"/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.77, decode[models.ScanResult](t, w).ConfidenceScore)

	w = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, flow.StepResults, decode[service.SessionView](t, w).Step)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, base, nil).Code)
}

func TestProcessingFailureOverHTTP(t *testing.T) {
	engine := &stubEngine{err: scanerr.Newf(scanerr.NetworkTimeout, "test", "no answer in 60s")}
	s := newTestServer(engine)
	id := s.create(t)
	base := "/api/v1/sessions/" + id
	s.toSideReview(t, id)

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, base+"/submit", nil).Code)
	s.wait(t, id)

	w := s.do(t, http.MethodGet, base+"/result", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, string(scanerr.NetworkTimeout), body["kind"])

	w = s.do(t, http.MethodPost, base+"/restart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, flow.StepFrontCapture, decode[service.SessionView](t, w).Step)
}

func TestSessionErrors(t *testing.T) {
	s := newTestServer(&stubEngine{})
	id := s.create(t)
	base := "/api/v1/sessions/" + id

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/sessions/missing", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, base+"/advance", nil).Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/start", nil).Code)
	bad := models.Subject{HeightCm: 90, WeightKg: 80, Age: 35, Sex: models.Male}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, base+"/subject", bad).Code)

	frame := capture.Frame{Keypoints: fixtures.FrontKeypoints()[:10], ImageWidth: 720, ImageHeight: 1280}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, base+"/frames", frame).Code)

	frame.Keypoints = fixtures.FrontKeypoints()
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, base+"/frames", frame).Code, "not in a capture step")

	assert.Equal(t, http.StatusBadRequest, s.upload(t, base+"/captures/top", []byte("x"), nil).Code)
}

func TestBadMaskUpload(t *testing.T) {
	s := newTestServer(&stubEngine{})
	id := s.create(t)
	base := "/api/v1/sessions/" + id
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/start", nil).Code)
	subject := models.Subject{HeightCm: 175, WeightKg: 80, Age: 35, Sex: models.Male}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/subject", subject).Code)
	s.feed(t, id, fixtures.FrontKeypoints())

	w := s.upload(t, base+"/captures/front", []byte("jpeg"), []byte("not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOversizedMaskUpload(t *testing.T) {
	s := newTestServer(&stubEngine{})
	id := s.create(t)
	base := "/api/v1/sessions/" + id
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/start", nil).Code)
	subject := models.Subject{HeightCm: 175, WeightKg: 80, Age: 35, Sex: models.Male}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/subject", subject).Code)
	s.feed(t, id, fixtures.FrontKeypoints())

	wider, err := fixtures.MaskPNG(fixtures.NewMask(fixtures.ImageWidth+1, fixtures.ImageHeight))
	require.NoError(t, err)
	w := s.upload(t, base+"/captures/front", []byte("jpeg"), wider)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(scanerr.SegmentationFailure), decode[map[string]any](t, w)["kind"])

	huge, err := fixtures.MaskPNG(fixtures.NewMask(silhouette.MaxMaskDimension+1, 1))
	require.NoError(t, err)
	w = s.upload(t, base+"/captures/front", []byte("jpeg"), huge)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDepthUpload(t *testing.T) {
	engine := &stubEngine{}
	s := newTestServer(engine)
	id := s.create(t)
	base := "/api/v1/sessions/" + id
	s.toSideReview(t, id)

	sideMask, err := fixtures.MaskPNG(fixtures.SideMask())
	require.NoError(t, err)
	w := s.uploadForm(t, base+"/captures/side",
		map[string][]byte{"image": []byte("jpeg"), "mask": sideMask, "depth": {0, 0, 128, 63}},
		map[string]string{"camera_intrinsics": `{"fx": 1450.2, "fy": 1450.2, "cx": 360, "cy": 640}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[service.SessionView](t, w)
	assert.True(t, view.Side.HasDepth)
	assert.False(t, view.Front.HasDepth)

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, base+"/submit", nil).Code)
	s.wait(t, id)
	engine.mu.Lock()
	side := engine.last.Side
	engine.mu.Unlock()
	assert.Equal(t, []byte{0, 0, 128, 63}, side.Depth)
	assert.Contains(t, side.Intrinsics, "1450.2")
}

func TestInvalidIntrinsicsIgnored(t *testing.T) {
	engine := &stubEngine{}
	s := newTestServer(engine)
	id := s.create(t)
	base := "/api/v1/sessions/" + id
	s.toSideReview(t, id)

	sideMask, err := fixtures.MaskPNG(fixtures.SideMask())
	require.NoError(t, err)
	w := s.uploadForm(t, base+"/captures/side",
		map[string][]byte{"image": []byte("jpeg"), "mask": sideMask},
		map[string]string{"camera_intrinsics": "{not json"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, base+"/submit", nil).Code)
	s.wait(t, id)
	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.last.Side.Intrinsics)
}

func TestProfilesOverHTTP(t *testing.T) {
	s := newTestServer(&stubEngine{})

	w := s.do(t, http.MethodGet, "/api/v1/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[service.ListProfilesResponse](t, w)
	assert.Equal(t, models.RegionCount, list.Total)

	factor := 1.07
	w = s.do(t, http.MethodPut, "/api/v1/profiles/waist", service.ProfileUpdateRequest{CorrectionFactor: &factor})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.07, decode[service.ProfileView](t, w).CorrectionFactor)

	factor = 2
	w = s.do(t, http.MethodPut, "/api/v1/profiles/waist", service.ProfileUpdateRequest{CorrectionFactor: &factor})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/profiles/tail", nil).Code)
}

func TestHealthOverHTTP(t *testing.T) {
	engine := &stubEngine{}
	s := newTestServer(engine)

	w := s.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "stub", health.Mode)

	engine.notReady = errors.New("down")
	w = s.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{scanerr.Newf(scanerr.InvalidPose, "op", "x"), http.StatusUnprocessableEntity},
		{scanerr.Newf(scanerr.MissingLandmarks, "op", "x"), http.StatusUnprocessableEntity},
		{scanerr.Newf(scanerr.SegmentationFailure, "op", "x"), http.StatusUnprocessableEntity},
		{scanerr.Newf(scanerr.NetworkTimeout, "op", "x"), http.StatusGatewayTimeout},
		{scanerr.Newf(scanerr.NetworkUnavailable, "op", "x"), http.StatusServiceUnavailable},
		{&flow.TransitionError{From: flow.StepIntro, Action: flow.ActionSubmit}, http.StatusConflict},
		{capture.ErrLoopStopped, http.StatusConflict},
		{fmt.Errorf("get: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	logger, hook := test.NewNullLogger()
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/x", func(c *gin.Context) { respondError(c, logger, errors.New("db password wrong")) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), body["trace_id"])
	assert.Contains(t, hook.LastEntry().Message, "db password wrong")
}
