package models

import (
	"time"

	ppmodels "github.com/iwtcode/ppmacAdapter/models"
)

// SetVariableRequest - запись одной переменной контроллера.
type SetVariableRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Value     string `json:"value" binding:"required"` // "1.5", "10", "$1F"
}

// RegisterAxisRequest привязывает имя к номеру оси контроллера.
type RegisterAxisRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Axis      int    `json:"axis" binding:"gte=0"`
}

// MoveRequest описывает движение одной оси.
type MoveRequest struct {
	Axis         string  `json:"axis" binding:"required"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Velocity     float64 `json:"velocity" binding:"required,gt=0"`
	Acceleration float64 `json:"acceleration" binding:"required,gt=0"`
}

// ScanRequest запускает fly-скан.
type ScanRequest struct {
	SessionID string        `json:"session_id" binding:"required"`
	Moves     []MoveRequest `json:"moves" binding:"required,min=1,dive"`
	Points    int64         `json:"points" binding:"required,gt=0"`
	TimeoutMs int           `json:"timeout_ms"` // 0 - значение из конфигурации
}

// Trajectory переводит запрос в траекторию библиотеки.
func (r ScanRequest) Trajectory() ppmodels.Trajectory {
	moves := make([]ppmodels.Move, 0, len(r.Moves))
	for _, m := range r.Moves {
		moves = append(moves, ppmodels.Move{
			Axis:         m.Axis,
			Start:        m.Start,
			End:          m.End,
			Velocity:     m.Velocity,
			Acceleration: m.Acceleration,
		})
	}
	return ppmodels.Trajectory{Moves: moves, Points: r.Points}
}

// ScanInfo - состояние скана сессии.
type ScanInfo struct {
	SessionID string              `json:"session_id"`
	Status    ppmodels.ScanStatus `json:"status"`
	Points    int                 `json:"points"`
	StartedAt time.Time           `json:"started_at"`
	Error     string              `json:"error,omitempty"`
}

// ScanEvent - сообщение о скане для Kafka.
type ScanEvent struct {
	SessionID string               `json:"session_id"`
	Endpoint  string               `json:"endpoint"`
	Type      string               `json:"type"` // point / result
	Timestamp time.Time            `json:"timestamp"`
	Point     *ppmodels.ScanPoint  `json:"point,omitempty"`
	Result    *ppmodels.ScanResult `json:"result,omitempty"`
}
