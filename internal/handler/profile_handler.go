package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/service"
)

// ProfileHandler обработчики настройки профилей зон
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *logrus.Logger
}

// NewProfileHandler создает обработчик профилей
func NewProfileHandler(profiles *service.ProfileService, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// RegisterRoutes регистрирует маршруты профилей
func (h *ProfileHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/profiles")
	{
		api.GET("", h.ListProfiles)
		api.GET("/:region", h.GetProfile)
		api.PUT("/:region", h.UpdateProfile)
	}
}

// ListProfiles возвращает активную таблицу
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, h.profiles.List())
}

// GetProfile возвращает одну зону
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.profiles.Get(c.Param("region"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile перекалибрует одну зону
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверное тело запроса"})
		return
	}

	profile, err := h.profiles.Update(c.Param("region"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
