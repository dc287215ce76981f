package interfaces

import "time"

// Metrics определяет контракт для метрик сканов и подключений
type Metrics interface {
	ScanStarted()
	ScanFinished(status string, duration time.Duration)
	PointsRecorded(n int)
	SetActiveScans(n int)
	SetConnections(n int)
	PublishFailed()
}
