package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/capture"
	"bodyscan-go/internal/flow"
	"bodyscan-go/internal/middleware"
	"bodyscan-go/internal/scanerr"
	"bodyscan-go/internal/service"
)

// statusOf сопоставляет ошибку сервиса с HTTP статусом
func statusOf(err error) int {
	var transition *flow.TransitionError
	var verrs validator.ValidationErrors

	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrUnknownRegion):
		return http.StatusNotFound
	case errors.As(err, &transition), errors.Is(err, capture.ErrLoopStopped), errors.Is(err, service.ErrResultNotReady):
		return http.StatusConflict
	case errors.As(err, &verrs), errors.Is(err, service.ErrInvalidProfile):
		return http.StatusBadRequest
	}

	switch scanerr.KindOf(err) {
	case scanerr.InvalidPose, scanerr.MissingLandmarks, scanerr.SegmentationFailure, scanerr.CalibrationImplausible:
		return http.StatusUnprocessableEntity
	case scanerr.NetworkTimeout:
		return http.StatusGatewayTimeout
	case scanerr.NetworkUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError пишет ответ с ошибкой. Внутренние сбои получают общее сообщение
// и id запроса, чтобы найти строку лога.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		traceID := middleware.RequestIDFrom(c)
		logger.WithField("request_id", traceID).Errorf("Внутренняя ошибка: %v", err)
		c.JSON(status, gin.H{
			"error":    scanerr.InternalMessage,
			"kind":     scanerr.Internal,
			"trace_id": traceID,
		})
		return
	}

	body := gin.H{"error": err.Error()}
	var se *scanerr.Error
	if errors.As(err, &se) {
		body["kind"] = se.Kind
	}
	c.JSON(status, body)
}
