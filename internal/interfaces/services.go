package interfaces

import (
	"context"
	"time"

	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
)

// PpmacService - это агрегирующий интерфейс для всей бизнес-логики.
type PpmacService interface {
	ConnectionManager
	ControllerAccess
	ScanManager
}

// ConnectionManager определяет контракт для управления пулом подключений.
type ConnectionManager interface {
	CreateConnection(req models.ConnectionRequest) (*models.ConnectionInfo, error)
	RestoreConnection(controller entities.PpmacController) (*models.ConnectionInfo, error)
	GetConnection(sessionID string) (*models.ConnectionInfo, bool)
	GetAllConnections() []*models.ConnectionInfo
	DeleteConnection(sessionID string) error
	CheckConnection(sessionID string) (*models.ConnectionInfo, error)
	CloseAll()
}

// ControllerAccess определяет контракт для чтения и записи переменных и осей.
type ControllerAccess interface {
	GetVariables(ctx context.Context, sessionID string, names []string) ([]ppmodels.VariableInfo, error)
	SetVariable(ctx context.Context, sessionID, name, value string) error
	RegisterAxis(sessionID, name string, axis int) error
	AxisStatus(ctx context.Context, sessionID, name string) (ppmodels.AxisStatus, error)
}

// ScanManager определяет контракт для запуска и сопровождения fly-сканов.
type ScanManager interface {
	StartScan(ctx context.Context, sessionID string, traj ppmodels.Trajectory, timeout time.Duration) (*models.ScanInfo, error)
	AbortScan(ctx context.Context, sessionID string) error
	GetScan(sessionID string) (*models.ScanInfo, error)
	IsScanActive(sessionID string) bool
}
