package interfaces

import (
	"context"

	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
)

// Usecases - это агрегирующий интерфейс для всех use cases
type Usecases interface {
	CreateConnection(req models.ConnectionRequest) (*models.ConnectionInfo, error)
	RestoreConnection(controller entities.PpmacController) (*models.ConnectionInfo, error)
	GetAllConnections() []*models.ConnectionInfo
	DeleteConnection(sessionID string) error
	CheckConnection(sessionID string) (*models.ConnectionInfo, error)

	GetVariables(ctx context.Context, sessionID string, names []string) ([]ppmodels.VariableInfo, error)
	SetVariable(ctx context.Context, req models.SetVariableRequest) error
	RegisterAxis(req models.RegisterAxisRequest) error
	AxisStatus(ctx context.Context, sessionID, name string) (ppmodels.AxisStatus, error)

	StartScan(ctx context.Context, req models.ScanRequest) (*models.ScanInfo, error)
	AbortScan(ctx context.Context, sessionID string) error
	GetScan(sessionID string) (*models.ScanInfo, error)
}
