package handlers

import (
	"net/http"
	"strings"

	"github.com/iwtcode/ppmacAdapter/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetVariables читает переменные контроллера.
// @Summary Прочитать переменные
// @Description Читает одну или несколько переменных одним запросом. Имена передаются параметром name (повторяемым или через запятую).
// @Tags Variables
// @Produce json
// @Param session_id query string true "ID сессии"
// @Param name query []string true "Имена переменных, например Motor[1].ActPos" collectionFormat(multi)
// @Success 200 {object} models.VariablesResponse "Значения переменных"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} models.ErrorResponse "Сессия или переменная не найдена"
// @Failure 502 {object} models.ErrorResponse "Контроллер недоступен"
// @Router /variables [get]
func (h *Handler) GetVariables(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		h.BadRequest(c, nil, "Missing session_id")
		return
	}

	var names []string
	for _, raw := range c.QueryArray("name") {
		names = append(names, strings.Split(raw, ",")...)
	}

	vars, err := h.usecase.GetVariables(c.Request.Context(), sessionID, names)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VariablesResponse{Status: "ok", Variables: vars})
}

// SetVariable записывает переменную контроллера.
// @Summary Записать переменную
// @Description Записывает значение переменной. Тип и диапазон проверяются до отправки на контроллер.
// @Tags Variables
// @Accept json
// @Produce json
// @Param input body models.SetVariableRequest true "Имя и значение переменной"
// @Success 200 {object} models.MessageResponse "Сообщение об успешной записи"
// @Failure 400 {object} models.ErrorResponse "Неверное значение или переменная только для чтения"
// @Failure 404 {object} models.ErrorResponse "Сессия или переменная не найдена"
// @Failure 502 {object} models.ErrorResponse "Контроллер недоступен"
// @Router /variables [post]
func (h *Handler) SetVariable(c *gin.Context) {
	var req models.SetVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	if err := h.usecase.SetVariable(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Variable written", "sessionID", req.SessionID, "name", req.Name, "value", req.Value)
	c.JSON(http.StatusOK, models.MessageResponse{Status: "ok", Message: req.Name + " = " + req.Value})
}
