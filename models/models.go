package models

import "time"

// AxisStatus содержит состояние оси, прочитанное с контроллера
type AxisStatus struct {
	Name           string    `json:"name"`
	Number         int       `json:"number"`
	HomePosition   float64   `json:"home_position"`
	ActualPosition float64   `json:"actual_position"`
	InPosition     bool      `json:"in_position"`
	ClosedLoop     bool      `json:"closed_loop"`
	Timestamp      time.Time `json:"timestamp"`
}

// Ready сообщает, что ось в позиции и в замкнутом контуре.
func (s AxisStatus) Ready() bool {
	return s.InPosition && s.ClosedLoop
}

// VariableInfo содержит значение переменной контроллера
type VariableInfo struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanStatus - состояние fly-скана
type ScanStatus string

const (
	ScanIdle       ScanStatus = "idle"
	ScanProgrammed ScanStatus = "programmed"
	ScanRunning    ScanStatus = "running"
	ScanComplete   ScanStatus = "complete"
	ScanAborted    ScanStatus = "aborted"
	ScanError      ScanStatus = "error"
)

// Terminal сообщает, является ли состояние конечным.
func (s ScanStatus) Terminal() bool {
	return s == ScanComplete || s == ScanAborted || s == ScanError
}

// ScanPoint - одна точка скана, соответствующая тику триггера контроллера
type ScanPoint struct {
	Index          int64              `json:"index"`
	ControllerTime float64            `json:"controller_time"`
	Observed       time.Time          `json:"observed"`
	Positions      map[string]float64 `json:"positions,omitempty"`
}

// ScanResult содержит итог скана, включая накопленные точки при прерывании или ошибке
type ScanResult struct {
	Status ScanStatus  `json:"status"`
	Points []ScanPoint `json:"points"`
	Err    error       `json:"-"`
	Error  string      `json:"error,omitempty"`
}

// Move описывает движение одной оси в траектории
type Move struct {
	Axis         string  `json:"axis"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
}

// Trajectory описывает fly-скан: движения осей и число точек триггера
type Trajectory struct {
	Moves  []Move `json:"moves"`
	Points int64  `json:"points"`
}

// ControllerInfo содержит сведения о подключенном контроллере
type ControllerInfo struct {
	Endpoint string `json:"endpoint"`
	Version  string `json:"version"`
	State    string `json:"state"`
}
