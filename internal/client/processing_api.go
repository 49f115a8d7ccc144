package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/scanerr"
	"bodyscan-go/pkg/models"
)

// DefaultTimeout жесткий лимит одного удаленного сканирования
const DefaultTimeout = 60 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ScanRequest оба снимка и данные пользователя.
// Карты глубины это сырые float32 буферы с LiDAR, CameraIntrinsics это JSON объект.
type ScanRequest struct {
	FrontImage       []byte
	FrontFilename    string
	SideImage        []byte
	SideFilename     string
	DepthFront       []byte
	DepthSide        []byte
	CameraIntrinsics string
	Subject          models.Subject
}

// ProcessingClient клиент удаленного GPU сервиса обработки
type ProcessingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewProcessingClient создает новый клиент для сервиса обработки
func NewProcessingClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *ProcessingClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Scan отправляет оба снимка в сервис обработки. Автоматических повторов нет.
func (c *ProcessingClient) Scan(ctx context.Context, request ScanRequest) (*models.ScanResult, error) {
	const op = "client.Scan"
	c.logger.Info("Отправка сканирования в сервис обработки")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writeFile(writer, "front_image", orDefault(request.FrontFilename, "front.jpg"), request.FrontImage); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, err)
	}
	if err := writeFile(writer, "side_image", orDefault(request.SideFilename, "side.jpg"), request.SideImage); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, err)
	}

	if len(request.DepthFront) > 0 {
		if err := writeFile(writer, "depth_front", "depth_front.bin", request.DepthFront); err != nil {
			return nil, scanerr.New(scanerr.Internal, op, err)
		}
	}
	if len(request.DepthSide) > 0 {
		if err := writeFile(writer, "depth_side", "depth_side.bin", request.DepthSide); err != nil {
			return nil, scanerr.New(scanerr.Internal, op, err)
		}
	}

	fields := map[string]string{
		"height_cm": fmt.Sprintf("%.1f", request.Subject.HeightCm),
		"weight_kg": fmt.Sprintf("%.1f", request.Subject.WeightKg),
		"age":       fmt.Sprintf("%d", request.Subject.Age),
		"sex":       string(request.Subject.Sex),
	}
	if request.CameraIntrinsics != "" {
		fields["camera_intrinsics"] = request.CameraIntrinsics
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, scanerr.New(scanerr.Internal, op, fmt.Errorf("failed to write %s: %w", name, err))
		}
	}

	if err := writer.Close(); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, fmt.Errorf("failed to close multipart writer: %w", err))
	}

	url := fmt.Sprintf("%s/api/scan", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, scanerr.New(scanerr.Internal, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debugf("POST %s", url)
	respBody, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var resp scanResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, fmt.Errorf("failed to parse response: %w", err))
	}

	result := resp.toResult()
	c.logger.Infof("Сервис обработки вернул %d обхватов, уверенность %.2f",
		len(result.Circumferences), result.ConfidenceScore)
	return result, nil
}

// CheckHealth запрашивает состояние сервиса обработки
func (c *ProcessingClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	const op = "client.CheckHealth"
	c.logger.Debug("Проверка здоровья сервиса обработки")

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, scanerr.New(scanerr.Internal, op, fmt.Errorf("failed to create request: %w", err))
	}

	respBody, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var health models.HealthResponse
	if err := json.Unmarshal(respBody, &health); err != nil {
		return nil, scanerr.New(scanerr.Internal, op, fmt.Errorf("failed to parse response: %w", err))
	}
	return &health, nil
}

func (c *ProcessingClient) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, scanerr.Newf(scanerr.NetworkUnavailable, op, "processing service not ready: %s", errorMessage(respBody))
	default:
		return nil, scanerr.Newf(scanerr.Internal, op, "processing service returned status %d: %s",
			resp.StatusCode, errorMessage(respBody))
	}
}

// classify делит ошибки транспорта на таймауты и недоступность сервиса
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return scanerr.New(scanerr.Internal, op, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return scanerr.New(scanerr.NetworkTimeout, op, err)
	}
	return scanerr.New(scanerr.NetworkUnavailable, op, err)
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

func writeFile(w *multipart.Writer, field, filename string, data []byte) error {
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form field %s: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", field, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
