package handlers

import (
	stderrors "errors"
	"net/http"
	"sort"
	"strings"

	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/pkg/errors"

	"github.com/gin-gonic/gin"
)

// bindSession берет session_id из query, а при его отсутствии - из JSON-тела.
func bindSession(c *gin.Context) (string, error) {
	if id := strings.TrimSpace(c.Query("session_id")); id != "" {
		return id, nil
	}
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.SessionID), nil
}

// CreateConnection создает новое подключение к контроллеру Power PMAC.
// @Summary Создать подключение
// @Description Создает сессию gpascii к контроллеру по его IP-адресу и порту и проверяет связь чтением sys.time.
// @Tags Connection
// @Accept json
// @Produce json
// @Param input body models.ConnectionRequest true "Данные для подключения (e.g., '192.168.0.200:1025')"
// @Success 200 {object} models.CreateConnectionResponse "Успешное создание подключения"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 409 {object} models.ErrorResponse "Подключение к адресу уже активно"
// @Failure 502 {object} models.ErrorResponse "Контроллер недоступен"
// @Router /connect [post]
func (h *Handler) CreateConnection(c *gin.Context) {
	var req models.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}
	req.EndpointURL = strings.TrimSpace(req.EndpointURL)

	connInfo, err := h.usecase.CreateConnection(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Controller connected", "sessionID", connInfo.SessionID, "endpoint", connInfo.Endpoint, "firmware", connInfo.Version)
	c.JSON(http.StatusOK, models.CreateConnectionResponse{Status: "ok", ConnectionInfo: connInfo})
}

// GetConnections возвращает список всех активных подключений.
// @Summary Получить список подключений
// @Description Возвращает пул подключений к контроллерам в порядке создания и число исправных.
// @Tags Connection
// @Produce json
// @Success 200 {object} models.GetConnectionsResponse "Список активных подключений"
// @Router /connect [get]
func (h *Handler) GetConnections(c *gin.Context) {
	connections := h.usecase.GetAllConnections()
	sort.Slice(connections, func(i, j int) bool {
		return connections[i].CreatedAt.Before(connections[j].CreatedAt)
	})

	healthy := 0
	for _, conn := range connections {
		if conn.IsHealthy {
			healthy++
		}
	}

	c.JSON(http.StatusOK, models.GetConnectionsResponse{
		Status:      "ok",
		PoolSize:    len(connections),
		Healthy:     healthy,
		Connections: connections,
	})
}

// DeleteConnection удаляет подключение по SessionID.
// @Summary Удалить подключение
// @Description Прерывает активный fly-скан сессии, закрывает соединение gpascii и удаляет запись из БД.
// @Tags Connection
// @Accept json
// @Produce json
// @Param session_id query string false "ID сессии"
// @Param input body models.SessionRequest false "ID сессии (если не указан в query)"
// @Success 200 {object} models.MessageResponse "Сообщение об успешном удалении"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} models.ErrorResponse "Подключение не найдено"
// @Router /connect [delete]
func (h *Handler) DeleteConnection(c *gin.Context) {
	sessionID, err := bindSession(c)
	if err != nil {
		h.BadRequest(c, err, "Missing or invalid SessionID")
		return
	}

	if err := h.usecase.DeleteConnection(sessionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Controller disconnected", "sessionID", sessionID)
	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "ok",
		Message: "Session " + sessionID + " disconnected successfully",
	})
}

// CheckConnection проверяет состояние подключения по SessionID.
// @Summary Проверить состояние подключения
// @Description Переподключается при необходимости и читает sys.time контроллера, связанного с SessionID.
// @Description Недоступный контроллер не является ошибкой запроса: ответ 200 со статусом 'unhealthy'.
// @Tags Connection
// @Accept json
// @Produce json
// @Param session_id query string false "ID сессии"
// @Param input body models.SessionRequest false "ID сессии (если не указан в query)"
// @Success 200 {object} models.CheckConnectionResponse "Статус 'healthy' или 'unhealthy'"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} models.ErrorResponse "Подключение не найдено"
// @Router /connect/check [post]
func (h *Handler) CheckConnection(c *gin.Context) {
	sessionID, err := bindSession(c)
	if err != nil {
		h.BadRequest(c, err, "Missing or invalid SessionID")
		return
	}

	connInfo, err := h.usecase.CheckConnection(sessionID)
	if err != nil && (connInfo == nil || stderrors.Is(err, errors.ErrSessionNotFound)) {
		h.HandleError(c, err)
		return
	}

	resp := models.CheckConnectionResponse{Status: "healthy", ConnectionInfo: connInfo}
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		h.logger.Warn("Controller is unhealthy", "sessionID", sessionID, "endpoint", connInfo.Endpoint, "error", err)
	}
	c.JSON(http.StatusOK, resp)
}
