package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/capture"
	"bodyscan-go/internal/flow"
	"bodyscan-go/internal/service"
	"bodyscan-go/internal/silhouette"
	"bodyscan-go/pkg/models"
)

// maxUploadBytes лимит multipart загрузки одного снимка
const maxUploadBytes = 32 << 20

// SessionHandler HTTP обработчики сценария сканирования
type SessionHandler struct {
	sessions *service.SessionService
	logger   *logrus.Logger
	frames   gin.HandlerFunc
}

// NewSessionHandler создает обработчик сессий. frameLimit ограничивает прием кадров и может быть nil.
func NewSessionHandler(sessions *service.SessionService, frameLimit gin.HandlerFunc, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
		frames:   frameLimit,
	}
}

// RegisterRoutes регистрирует маршруты сессий
func (h *SessionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/sessions")
	{
		api.POST("", h.CreateSession)
		api.GET("/:id", h.GetSession)
		api.DELETE("/:id", h.DeleteSession)
		api.POST("/:id/start", h.action((*service.Session).Start))
		api.POST("/:id/subject", h.SubmitSubject)
		api.POST("/:id/retake", h.action((*service.Session).Retake))
		api.POST("/:id/advance", h.action((*service.Session).Advance))
		api.POST("/:id/submit", h.submit((*service.Session).Submit))
		api.POST("/:id/retry", h.submit((*service.Session).Retry))
		api.POST("/:id/restart", h.action((*service.Session).Restart))
		api.PUT("/:id/captures/:view", h.AttachCapture)
		api.GET("/:id/result", h.GetResult)

		if h.frames != nil {
			api.POST("/:id/frames", h.frames, h.SubmitFrame)
		} else {
			api.POST("/:id/frames", h.SubmitFrame)
		}
	}
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return sess, true
}

// CreateSession открывает новую сессию, отбрасывая предыдущую сессию клиента
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверное тело запроса"})
			return
		}
	}

	sess := h.sessions.Create(req.ClientID)
	c.JSON(http.StatusCreated, sess.View())
}

// GetSession возвращает снимок состояния сессии
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// DeleteSession удаляет сессию
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Сессия удалена"})
}

// action оборачивает действие сценария без тела запроса
func (h *SessionHandler) action(do func(*service.Session) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := h.session(c)
		if !ok {
			return
		}
		if err := do(sess); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, sess.View())
	}
}

// submit оборачивает действия, запускающие фоновую обработку
func (h *SessionHandler) submit(do func(*service.Session) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := h.session(c)
		if !ok {
			return
		}
		if err := do(sess); err != nil {
			respondError(c, h.logger, err)
			return
		}
		h.logger.Infof("Сессия %s отправлена на обработку", sess.ID)
		c.JSON(http.StatusAccepted, sess.View())
	}
}

// SubmitSubject сохраняет рост, вес, возраст и пол
func (h *SessionHandler) SubmitSubject(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var subject models.Subject
	if err := c.ShouldBindJSON(&subject); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные пользователя"})
		return
	}
	if err := sess.SubmitSubject(subject); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// SubmitFrame оценивает один живой кадр текущего шага съемки
func (h *SessionHandler) SubmitFrame(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var frame capture.Frame
	if err := c.ShouldBindJSON(&frame); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные кадра"})
		return
	}
	if err := frame.Keypoints.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feedback, err := sess.SubmitFrame(c.Request.Context(), frame)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

// AttachCapture загружает снимок, маску тела и карту глубины снимка на проверке
func (h *SessionHandler) AttachCapture(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	view := models.View(c.Param("view"))
	if view != models.FrontView && view != models.SideView {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ракурс должен быть front или side"})
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Errorf("Ошибка разбора multipart формы: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка разбора формы"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл изображения обязателен"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		h.logger.Errorf("Ошибка чтения изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения изображения"})
		return
	}
	h.logger.Debugf("Прочитано %d байт изображения %s %s", len(image), view, header.Filename)

	var mask *models.Mask
	if maskFile, _, err := c.Request.FormFile("mask"); err == nil {
		defer maskFile.Close()
		data, err := io.ReadAll(maskFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения маски"})
			return
		}
		if mask, err = silhouette.DecodeMask(bytes.NewReader(data)); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	var depth []byte
	if depthFile, _, err := c.Request.FormFile("depth"); err == nil {
		defer depthFile.Close()
		if depth, err = io.ReadAll(depthFile); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения карты глубины"})
			return
		}
	}

	intrinsics := c.Request.FormValue("camera_intrinsics")
	if intrinsics != "" && !jsoniter.Valid([]byte(intrinsics)) {
		h.logger.Warnf("Некорректный JSON параметров камеры для снимка %s, игнорируем", view)
		intrinsics = ""
	}

	attachment := flow.Attachment{
		Image:      image,
		ImageName:  header.Filename,
		Mask:       mask,
		Depth:      depth,
		Intrinsics: intrinsics,
	}
	if err := sess.AttachImage(view, attachment); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// GetResult возвращает результат скана после завершения обработки
func (h *SessionHandler) GetResult(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	result, err := sess.Result()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
