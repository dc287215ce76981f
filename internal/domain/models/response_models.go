package models

import ppmodels "github.com/iwtcode/ppmacAdapter/models"

// ErrorResponse представляет стандартный ответ с ошибкой.
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Error  struct {
		Code    int    `json:"code" example:"404"`
		Message string `json:"message" example:"Подключение не найдено"`
	} `json:"error"`
}

// MessageResponse представляет стандартный успешный ответ с сообщением.
type MessageResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"Scan started successfully"`
}

// CreateConnectionResponse представляет ответ при успешном создании подключения.
type CreateConnectionResponse struct {
	Status         string          `json:"status" example:"ok"`
	ConnectionInfo *ConnectionInfo `json:"connection_info"`
}

// GetConnectionsResponse представляет ответ со списком всех подключений.
type GetConnectionsResponse struct {
	Status      string            `json:"status" example:"ok"`
	PoolSize    int               `json:"pool_size" example:"2"`
	Healthy     int               `json:"healthy" example:"1"`
	Connections []*ConnectionInfo `json:"connections"`
}

// CheckConnectionResponse представляет ответ при успешной проверке подключения.
type CheckConnectionResponse struct {
	Status         string          `json:"status" example:"healthy"`
	Error          string          `json:"error,omitempty"`
	ConnectionInfo *ConnectionInfo `json:"connection_info"`
}

// VariablesResponse содержит прочитанные переменные.
type VariablesResponse struct {
	Status    string                  `json:"status" example:"ok"`
	Variables []ppmodels.VariableInfo `json:"variables"`
}

// AxisStatusResponse содержит состояние оси.
type AxisStatusResponse struct {
	Status string              `json:"status" example:"ok"`
	Axis   ppmodels.AxisStatus `json:"axis"`
}

// ScanStatusResponse содержит состояние скана.
type ScanStatusResponse struct {
	Status string    `json:"status" example:"ok"`
	Scan   *ScanInfo `json:"scan"`
}
