package fly

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState - операция недопустима в текущем состоянии скана.
	ErrInvalidState = errors.New("invalid scan state")

	// ErrScanTimeout - скан не завершился за отведенное время.
	ErrScanTimeout = errors.New("scan timed out")
)

// NotReadyError перечисляет причины, по которым скан нельзя запрограммировать.
type NotReadyError struct {
	Reasons []string
}

func (e *NotReadyError) Error() string {
	return "scan not ready: " + strings.Join(e.Reasons, "; ")
}

// FaultError - контроллер сообщил об аварии во время скана.
type FaultError struct {
	Code int64
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("controller fault %d during scan", e.Code)
}
