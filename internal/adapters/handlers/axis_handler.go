package handlers

import (
	"fmt"
	"net/http"

	"github.com/iwtcode/ppmacAdapter/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// RegisterAxis регистрирует имя оси в сессии.
// @Summary Зарегистрировать ось
// @Description Привязывает логическое имя к номеру мотора контроллера. Повторная регистрация той же пары не является ошибкой.
// @Tags Axes
// @Accept json
// @Produce json
// @Param input body models.RegisterAxisRequest true "Имя и номер оси"
// @Success 200 {object} models.MessageResponse "Сообщение об успешной регистрации"
// @Failure 400 {object} models.ErrorResponse "Имя или номер уже заняты"
// @Failure 404 {object} models.ErrorResponse "Сессия не найдена"
// @Router /axes [post]
func (h *Handler) RegisterAxis(c *gin.Context) {
	var req models.RegisterAxisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	if err := h.usecase.RegisterAxis(req); err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Axis %s registered as motor %d", req.Name, req.Axis),
	})
}

// AxisStatus возвращает состояние оси.
// @Summary Состояние оси
// @Description Читает позиции и флаги оси одним запросом к контроллеру.
// @Tags Axes
// @Produce json
// @Param session_id query string true "ID сессии"
// @Param name query string true "Имя оси"
// @Success 200 {object} models.AxisStatusResponse "Состояние оси"
// @Failure 400 {object} models.ErrorResponse "Ось не зарегистрирована"
// @Failure 404 {object} models.ErrorResponse "Сессия не найдена"
// @Failure 502 {object} models.ErrorResponse "Контроллер недоступен"
// @Router /axes/status [get]
func (h *Handler) AxisStatus(c *gin.Context) {
	sessionID, name := c.Query("session_id"), c.Query("name")
	if sessionID == "" || name == "" {
		h.BadRequest(c, nil, "Missing session_id or name")
		return
	}

	status, err := h.usecase.AxisStatus(c.Request.Context(), sessionID, name)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AxisStatusResponse{Status: "ok", Axis: status})
}
