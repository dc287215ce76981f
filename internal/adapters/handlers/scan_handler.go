package handlers

import (
	"fmt"
	"net/http"

	"github.com/iwtcode/ppmacAdapter/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// StartScan программирует и запускает fly-скан.
// @Summary Запустить fly-скан
// @Description Проверяет готовность осей, записывает траекторию и запускает скан. Точки и итог публикуются в Kafka.
// @Tags Scans
// @Accept json
// @Produce json
// @Param input body models.ScanRequest true "Траектория скана"
// @Success 200 {object} models.ScanStatusResponse "Скан запущен"
// @Failure 400 {object} models.ErrorResponse "Неверная траектория или оси не готовы"
// @Failure 404 {object} models.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} models.ErrorResponse "Скан уже выполняется"
// @Failure 502 {object} models.ErrorResponse "Контроллер недоступен"
// @Router /scans [post]
func (h *Handler) StartScan(c *gin.Context) {
	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	h.logger.Info("Attempting to start scan", "sessionID", req.SessionID, "points", req.Points, "axes", len(req.Moves))

	info, err := h.usecase.StartScan(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanStatusResponse{Status: "ok", Scan: info})
}

// GetScan возвращает состояние последнего скана сессии.
// @Summary Состояние скана
// @Tags Scans
// @Produce json
// @Param session_id query string true "ID сессии"
// @Success 200 {object} models.ScanStatusResponse "Состояние скана"
// @Failure 404 {object} models.ErrorResponse "Скан не найден"
// @Router /scans/status [get]
func (h *Handler) GetScan(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		h.BadRequest(c, nil, "Missing session_id")
		return
	}

	info, err := h.usecase.GetScan(sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanStatusResponse{Status: "ok", Scan: info})
}

// AbortScan прерывает скан сессии.
// @Summary Прервать скан
// @Description Останавливает движение и снимает взвод осей. Повторный вызов для завершенного скана ничего не делает.
// @Tags Scans
// @Accept json
// @Produce json
// @Param input body models.SessionRequest true "ID сессии"
// @Success 200 {object} models.MessageResponse "Скан прерван"
// @Failure 404 {object} models.ErrorResponse "Скан не найден"
// @Failure 502 {object} models.ErrorResponse "Контроллер недоступен"
// @Router /scans/abort [post]
func (h *Handler) AbortScan(c *gin.Context) {
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Missing or invalid SessionID")
		return
	}

	if err := h.usecase.AbortScan(c.Request.Context(), req.SessionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Scan aborted", "sessionID", req.SessionID)
	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Scan aborted for session %s", req.SessionID),
	})
}
