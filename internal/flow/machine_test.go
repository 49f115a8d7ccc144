package flow

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodyscan-go/internal/fixtures"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

var subject = models.Subject{HeightCm: 175, WeightKg: 80, Age: 35, Sex: models.Male}

func capture(kps models.Keypoints) Capture {
	return Capture{Keypoints: kps, ImageWidth: fixtures.ImageWidth, ImageHeight: fixtures.ImageHeight}
}

// toSideReview доводит новую машину до side_review.
func toSideReview(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine()
	require.NoError(t, m.Start())
	require.NoError(t, m.SubmitSubject(subject))
	require.NoError(t, m.CaptureFront(capture(fixtures.FrontKeypoints())))
	require.NoError(t, m.AdvanceToSide())
	require.NoError(t, m.CaptureSide(capture(fixtures.SideKeypoints())))
	require.Equal(t, StepSideReview, m.Step())
	return m
}

func isTransition(t *testing.T, err error) {
	t.Helper()
	var te *TransitionError
	assert.True(t, errors.As(err, &te), "want TransitionError, got %v", err)
}

func TestHappyPath(t *testing.T) {
	m := toSideReview(t)
	require.NoError(t, m.Submit())
	require.NoError(t, m.SetCalibration(models.CalibrationData{PixelsPerCm: 4.2}))

	result := &models.ScanResult{ConfidenceScore: 0.8}
	require.NoError(t, m.Complete(result))

	st := m.State()
	assert.Equal(t, StepResults, st.Step)
	assert.Same(t, result, st.Result)
	assert.Equal(t, subject, *st.Subject)
}

func TestIntroOnlyStarts(t *testing.T) {
	m := NewMachine()
	actions := map[string]func() error{
		"subject": func() error { return m.SubmitSubject(subject) },
		"capture": func() error { return m.Capture(capture(fixtures.FrontKeypoints())) },
		"retake":  m.Retake,
		"advance": m.AdvanceToSide,
		"submit":  m.Submit,
		"retry":   m.Retry,
		"restart": m.Restart,
	}
	for name, act := range actions {
		err := act()
		isTransition(t, err)
		assert.Equal(t, StepIntro, m.Step(), name)
	}
	require.NoError(t, m.Start())
	assert.Equal(t, StepCalibration, m.Step())
}

func TestResultsIsTerminal(t *testing.T) {
	m := toSideReview(t)
	require.NoError(t, m.Submit())
	require.NoError(t, m.Complete(&models.ScanResult{}))

	for _, act := range []func() error{m.Start, m.Retake, m.AdvanceToSide, m.Submit, m.Retry, m.Restart} {
		isTransition(t, act())
	}
	isTransition(t, m.Complete(&models.ScanResult{}))
	isTransition(t, m.Fail(errors.New("x")))
	assert.Equal(t, StepResults, m.Step())
}

func TestSubmitOnlyFromSideReview(t *testing.T) {
	m := NewMachine()
	isTransition(t, m.Submit())
	require.NoError(t, m.Start())
	isTransition(t, m.Submit())
	require.NoError(t, m.SubmitSubject(subject))
	isTransition(t, m.Submit())
	require.NoError(t, m.CaptureFront(capture(fixtures.FrontKeypoints())))
	isTransition(t, m.Submit())
	require.NoError(t, m.AdvanceToSide())
	isTransition(t, m.Submit())
}

func TestSubjectValidation(t *testing.T) {
	bad := []models.Subject{
		{HeightCm: 99, WeightKg: 80, Age: 35, Sex: models.Male},
		{HeightCm: 251, WeightKg: 80, Age: 35, Sex: models.Male},
		{HeightCm: 175, WeightKg: 29, Age: 35, Sex: models.Male},
		{HeightCm: 175, WeightKg: 301, Age: 35, Sex: models.Male},
		{HeightCm: 175, WeightKg: 80, Age: 12, Sex: models.Male},
		{HeightCm: 175, WeightKg: 80, Age: 121, Sex: models.Male},
		{HeightCm: 175, WeightKg: 80, Age: 35, Sex: "other"},
	}

	for _, s := range bad {
		m := NewMachine()
		require.NoError(t, m.Start())
		err := m.SubmitSubject(s)
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs), "%+v", s)
		assert.Equal(t, StepCalibration, m.Step())
	}

	edge := models.Subject{HeightCm: 100, WeightKg: 300, Age: 13, Sex: models.Female}
	assert.NoError(t, ValidateSubject(edge))
}

func TestRetakes(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start())
	require.NoError(t, m.SubmitSubject(subject))
	require.NoError(t, m.Capture(capture(fixtures.FrontKeypoints())))
	require.NoError(t, m.Retake())
	assert.Equal(t, StepFrontCapture, m.Step())
	assert.Nil(t, m.State().Front)

	m = toSideReview(t)
	require.NoError(t, m.Retake())
	assert.Equal(t, StepSideCapture, m.Step())
	assert.Nil(t, m.State().Side)
	assert.NotNil(t, m.State().Front)
}

func TestAttachImage(t *testing.T) {
	m := toSideReview(t)
	isTransition(t, m.AttachImage(models.FrontView, Attachment{Image: []byte("x"), ImageName: "front.jpg"}))

	mask := fixtures.SideMask()
	require.NoError(t, m.AttachImage(models.SideView, Attachment{
		Image:      []byte("img"),
		ImageName:  "side.jpg",
		Mask:       mask,
		Depth:      []byte{0, 0, 128, 63},
		Intrinsics: `{"fx": 1450}`,
	}))
	side := m.State().Side
	assert.Equal(t, []byte("img"), side.Image)
	assert.Same(t, mask, side.Mask)
	assert.Equal(t, []byte{0, 0, 128, 63}, side.Depth)
	assert.Equal(t, `{"fx": 1450}`, side.Intrinsics)
}

func TestAttachImageRejectsOversizedMask(t *testing.T) {
	m := toSideReview(t)

	mask := fixtures.NewMask(fixtures.ImageWidth+1, fixtures.ImageHeight)
	err := m.AttachImage(models.SideView, Attachment{Image: []byte("img"), Mask: mask})
	require.Error(t, err)
	assert.Equal(t, scanerr.SegmentationFailure, scanerr.KindOf(err))
	assert.Nil(t, m.State().Side.Image)
	assert.Nil(t, m.State().Side.Mask)

	same := fixtures.NewMask(fixtures.ImageWidth, fixtures.ImageHeight)
	require.NoError(t, m.AttachImage(models.SideView, Attachment{Image: []byte("img"), Mask: same}))
}

func TestCalibrationIsImmutable(t *testing.T) {
	m := toSideReview(t)
	isTransition(t, m.SetCalibration(models.CalibrationData{PixelsPerCm: 4}))

	require.NoError(t, m.Submit())
	require.NoError(t, m.SetCalibration(models.CalibrationData{PixelsPerCm: 4}))
	isTransition(t, m.SetCalibration(models.CalibrationData{PixelsPerCm: 5}))
	assert.Equal(t, 4.0, m.State().Calibration.PixelsPerCm)
}

func TestFailureStaysInProcessing(t *testing.T) {
	m := toSideReview(t)
	require.NoError(t, m.Submit())

	isTransition(t, m.Retry())
	isTransition(t, m.Restart())

	boom := errors.New("segmentation failed")
	require.NoError(t, m.Fail(boom))
	assert.Equal(t, StepProcessing, m.Step())
	assert.Equal(t, boom, m.State().Err)

	require.NoError(t, m.Retry())
	assert.Equal(t, StepProcessing, m.Step())
	assert.NoError(t, m.State().Err)

	require.NoError(t, m.Fail(boom))
	require.NoError(t, m.Restart())
	st := m.State()
	assert.Equal(t, StepFrontCapture, st.Step)
	assert.Nil(t, st.Front)
	assert.Nil(t, st.Side)
	assert.NotNil(t, st.Subject)
}

func TestViewHelpers(t *testing.T) {
	assert.Equal(t, StepSideCapture, CaptureStep(models.SideView))
	assert.Equal(t, StepFrontCapture, CaptureStep(models.FrontView))

	v, ok := ViewOf(StepSideReview)
	assert.True(t, ok)
	assert.Equal(t, models.SideView, v)
	_, ok = ViewOf(StepProcessing)
	assert.False(t, ok)
}
