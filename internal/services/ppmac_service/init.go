package ppmac_service

import (
	"context"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
)

type ppmacService struct {
	connMgr *ConnectionManager
	scanMgr *ScanManager
}

func NewPpmacService(
	repo interfaces.PpmacControllerRepository,
	producer interfaces.KafkaService,
	metrics interfaces.Metrics,
	connector gpascii.Connector,
	cfg *config.AppConfig,
	logger *logging.Logger,
) interfaces.PpmacService {
	scanManager := NewScanManager(repo, producer, metrics, cfg.Ppmac, logger)
	connectionManager := NewConnectionManager(scanManager, repo, connector, cfg.Ppmac, metrics, logger)
	scanManager.controllers = connectionManager

	return &ppmacService{
		connMgr: connectionManager,
		scanMgr: scanManager,
	}
}

// --- Реализация методов интерфейса PpmacService ---

func (s *ppmacService) CreateConnection(req models.ConnectionRequest) (*models.ConnectionInfo, error) {
	return s.connMgr.CreateConnection(req)
}

func (s *ppmacService) RestoreConnection(controller entities.PpmacController) (*models.ConnectionInfo, error) {
	return s.connMgr.RestoreConnection(controller)
}

func (s *ppmacService) GetConnection(sessionID string) (*models.ConnectionInfo, bool) {
	return s.connMgr.GetConnection(sessionID)
}

func (s *ppmacService) GetAllConnections() []*models.ConnectionInfo {
	return s.connMgr.GetAllConnections()
}

func (s *ppmacService) DeleteConnection(sessionID string) error {
	return s.connMgr.DeleteConnection(sessionID)
}

func (s *ppmacService) CheckConnection(sessionID string) (*models.ConnectionInfo, error) {
	return s.connMgr.CheckConnection(sessionID)
}

func (s *ppmacService) CloseAll() {
	s.connMgr.CloseAll()
	s.scanMgr.Wait()
}

func (s *ppmacService) GetVariables(ctx context.Context, sessionID string, names []string) ([]ppmodels.VariableInfo, error) {
	return s.connMgr.GetVariables(ctx, sessionID, names)
}

func (s *ppmacService) SetVariable(ctx context.Context, sessionID, name, value string) error {
	return s.connMgr.SetVariable(ctx, sessionID, name, value)
}

func (s *ppmacService) RegisterAxis(sessionID, name string, axis int) error {
	return s.connMgr.RegisterAxis(sessionID, name, axis)
}

func (s *ppmacService) AxisStatus(ctx context.Context, sessionID, name string) (ppmodels.AxisStatus, error) {
	return s.connMgr.AxisStatus(ctx, sessionID, name)
}

func (s *ppmacService) StartScan(ctx context.Context, sessionID string, traj ppmodels.Trajectory, timeout time.Duration) (*models.ScanInfo, error) {
	return s.scanMgr.StartScan(ctx, sessionID, traj, timeout)
}

func (s *ppmacService) AbortScan(ctx context.Context, sessionID string) error {
	return s.scanMgr.AbortScan(ctx, sessionID)
}

func (s *ppmacService) GetScan(sessionID string) (*models.ScanInfo, error) {
	return s.scanMgr.GetScan(sessionID)
}

func (s *ppmacService) IsScanActive(sessionID string) bool {
	return s.scanMgr.IsScanActive(sessionID)
}
