package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/service"
	"bodyscan-go/pkg/models"
)

// healthTimeout предел одной проверки готовности
const healthTimeout = 5 * time.Second

// HealthHandler обработчик для проверки здоровья сервиса
type HealthHandler struct {
	engine   service.Engine
	database func() error
	version  string
	logger   *logrus.Logger
}

// NewHealthHandler создает health обработчик. database может быть nil, если база не используется.
func NewHealthHandler(engine service.Engine, database func() error, version string, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{engine: engine, database: database, version: version, logger: logger}
}

// RegisterRoutes регистрирует маршрут проверки здоровья
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/v1/health", h.HealthCheck)
}

// HealthCheck проверяет готовность движка обработки и базы данных
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	health := models.HealthResponse{
		Status:      "healthy",
		ModelLoaded: true,
		Mode:        h.engine.Name(),
		Version:     h.version,
	}

	if err := h.engine.Ready(ctx); err != nil {
		h.logger.Errorf("Движок обработки не готов: %v", err)
		health.Status = "unhealthy"
		health.ModelLoaded = false
	}
	if h.database != nil {
		if err := h.database(); err != nil {
			h.logger.Errorf("База данных недоступна: %v", err)
			health.Status = "unhealthy"
		}
	}

	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, health)
}
