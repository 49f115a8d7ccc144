package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/calibration"
	"bodyscan-go/internal/client"
	"bodyscan-go/internal/composition"
	"bodyscan-go/internal/confidence"
	"bodyscan-go/internal/flow"
	"bodyscan-go/internal/measurement"
	"bodyscan-go/internal/regions"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/internal/silhouette"
	"bodyscan-go/pkg/models"
)

// ScanInput все, что нужно одному запуску обработки
type ScanInput struct {
	Subject        models.Subject
	Calibration    *models.CalibrationData
	CalibrationErr error // почему Calibration равна nil
	Front          flow.Capture
	Side           flow.Capture
}

// Engine превращает два снимка в ScanResult.
// Реализации взаимозаменяемы и возвращают результат одной формы.
type Engine interface {
	Name() string
	Process(ctx context.Context, input ScanInput) (*models.ScanResult, error)
	Ready(ctx context.Context) error
}

// LocalEngine численный конвейер внутри процесса
type LocalEngine struct {
	analyzer   *silhouette.Analyzer
	calculator *measurement.Calculator
	logger     *logrus.Logger
}

// NewLocalEngine создает локальный движок над заданной таблицей профилей
func NewLocalEngine(profiles *regions.Store, logger *logrus.Logger) *LocalEngine {
	return &LocalEngine{
		analyzer:   silhouette.NewAnalyzer(profiles),
		calculator: measurement.NewCalculator(profiles),
		logger:     logger,
	}
}

// Name имя движка
func (e *LocalEngine) Name() string { return "local" }

// Ready у локального конвейера нет зависимостей
func (e *LocalEngine) Ready(ctx context.Context) error { return nil }

// Process по очереди выполняет силуэт, обхваты, состав тела и уверенность
func (e *LocalEngine) Process(ctx context.Context, input ScanInput) (*models.ScanResult, error) {
	const op = "service.LocalEngine.Process"
	start := time.Now()

	cal := input.Calibration
	if cal == nil {
		if input.CalibrationErr != nil {
			return nil, input.CalibrationErr
		}
		return nil, scanerr.Newf(scanerr.Internal, op, "calibration missing")
	}

	var warnings []string
	if check := calibration.ValidateCalibration(cal); !check.Valid {
		e.logger.Warnf("Предупреждение калибровки: %s (%.2f px/cm)", check.Message, cal.PixelsPerCm)
		warnings = append(warnings, check.Message)
	}

	if input.Front.Mask == nil || input.Side.Mask == nil {
		return nil, scanerr.Newf(scanerr.SegmentationFailure, op, "body mask missing for a capture")
	}

	frontWidths, err := e.analyzer.Analyze(input.Front.Mask, input.Front.Keypoints)
	if err != nil {
		return nil, err
	}
	sideWidths, err := e.analyzer.Analyze(input.Side.Mask, input.Side.Keypoints)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("Ширины силуэта: front=%d side=%d", len(frontWidths), len(sideWidths))

	if err := ctx.Err(); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, err)
	}

	paired := silhouette.Pair(frontWidths, sideWidths,
		silhouette.CmPerMaskPixel(input.Front.Mask, input.Front.ImageWidth, cal),
		silhouette.CmPerMaskPixel(input.Side.Mask, input.Side.ImageWidth, cal))
	if len(paired) == 0 {
		return nil, scanerr.Newf(scanerr.SegmentationFailure, op, "no region measured in both views")
	}

	circumferences := e.calculator.All(paired)
	body := composition.Calculate(input.Subject, composition.FromCircumferences(circumferences))
	lengths := measurement.Lengths(input.Front.Keypoints, input.Front.ImageWidth, input.Front.ImageHeight, cal)
	factors := confidence.Collect(circumferences, input.Front.Keypoints, input.Side.Keypoints, cal)
	score := factors.Score()
	regionConfidence := e.calculator.OverallConfidence(circumferences)
	e.logger.Debugf("Факторы уверенности %+v, взвешенная уверенность зон %.2f", factors, regionConfidence)

	e.logger.Infof("Локальное сканирование завершено за %v: зон %d, жир %.1f%%, уверенность %.2f",
		time.Since(start), len(circumferences), body.BodyFatPct, score)

	return &models.ScanResult{
		Circumferences:   circumferences,
		Composition:      body,
		Lengths:          lengths,
		ConfidenceScore:  score,
		RegionConfidence: regionConfidence,
		ScanTier:         models.TierPhoto,
		Warnings:         warnings,
	}, nil
}

// ProcessingAPI операции удаленного сервиса обработки
type ProcessingAPI interface {
	Scan(ctx context.Context, request client.ScanRequest) (*models.ScanResult, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// RemoteEngine передает обработку удаленному сервису
type RemoteEngine struct {
	api    ProcessingAPI
	logger *logrus.Logger
}

// NewRemoteEngine создает движок поверх сервиса обработки
func NewRemoteEngine(api ProcessingAPI, logger *logrus.Logger) *RemoteEngine {
	return &RemoteEngine{api: api, logger: logger}
}

// Name имя движка
func (e *RemoteEngine) Name() string { return "remote" }

// Ready проверяет здоровье удаленного сервиса
func (e *RemoteEngine) Ready(ctx context.Context) error {
	health, err := e.api.CheckHealth(ctx)
	if err != nil {
		return err
	}
	if health.Status != "ok" && health.Status != "healthy" {
		return scanerr.Newf(scanerr.NetworkUnavailable, "service.RemoteEngine.Ready", "processing service status %q", health.Status)
	}
	return nil
}

// Process загружает оба снимка. Калибровка удаленно не нужна.
func (e *RemoteEngine) Process(ctx context.Context, input ScanInput) (*models.ScanResult, error) {
	const op = "service.RemoteEngine.Process"

	if len(input.Front.Image) == 0 || len(input.Side.Image) == 0 {
		return nil, scanerr.Newf(scanerr.Internal, op, "front and side images are required")
	}

	e.logger.Info("Передача сканирования в сервис обработки")
	intrinsics := input.Front.Intrinsics
	if intrinsics == "" {
		intrinsics = input.Side.Intrinsics
	}
	if len(input.Front.Depth) > 0 || len(input.Side.Depth) > 0 {
		e.logger.Debugf("Прикладываем карты глубины: front %d байт, side %d байт", len(input.Front.Depth), len(input.Side.Depth))
	}
	result, err := e.api.Scan(ctx, client.ScanRequest{
		FrontImage:       input.Front.Image,
		FrontFilename:    input.Front.ImageName,
		SideImage:        input.Side.Image,
		SideFilename:     input.Side.ImageName,
		DepthFront:       input.Front.Depth,
		DepthSide:        input.Side.Depth,
		CameraIntrinsics: intrinsics,
		Subject:          input.Subject,
	})
	if err != nil {
		e.logger.Errorf("Ошибка сервиса обработки: %v", err)
		return nil, err
	}
	return result, nil
}
