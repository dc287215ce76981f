package ppmac_service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iwtcode/ppmacAdapter/axis"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	apperrors "github.com/iwtcode/ppmacAdapter/pkg/errors"
	"gorm.io/gorm"
)

// Таймаут проверки доступности контроллера.
const checkTimeout = 5 * time.Second

// ScanStopper определяет методы, которые ConnectionManager может вызывать у ScanManager.
type ScanStopper interface {
	StopScanForController(sessionID string)
}

// controllerConn - живое подключение к контроллеру в пуле.
type controllerConn struct {
	info    *models.ConnectionInfo
	manager *gpascii.Manager
	tracker *axis.Tracker
}

type ConnectionManager struct {
	mu        sync.RWMutex
	pool      map[string]*controllerConn
	scanMgr   ScanStopper
	dbRepo    interfaces.PpmacControllerRepository
	connector gpascii.Connector
	cfg       config.PpmacConfig
	metrics   interfaces.Metrics
	logger    *logging.Logger
}

func NewConnectionManager(
	scanMgr ScanStopper,
	dbRepo interfaces.PpmacControllerRepository,
	connector gpascii.Connector,
	cfg config.PpmacConfig,
	metrics interfaces.Metrics,
	logger *logging.Logger,
) *ConnectionManager {
	return &ConnectionManager{
		pool:      make(map[string]*controllerConn),
		scanMgr:   scanMgr,
		dbRepo:    dbRepo,
		connector: connector,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.WithPrefix("CONNECTOR"),
	}
}

// newController собирает менеджер соединения и трекер осей для адреса.
func (cm *ConnectionManager) newController(endpoint string) *controllerConn {
	sessionOpts := []gpascii.SessionOption{
		gpascii.WithBatching(cm.cfg.Batch),
		gpascii.WithCommandTimeout(time.Duration(cm.cfg.TimeoutMs) * time.Millisecond),
	}
	if cm.cfg.Username != "" {
		sessionOpts = append(sessionOpts, gpascii.WithCredentials(cm.cfg.Username, cm.cfg.Password))
	}

	backoff := time.Duration(cm.cfg.BackoffMs) * time.Millisecond
	entry := cm.logger.WithPrefix(endpoint).Entry()

	manager := gpascii.NewManager(endpoint, cm.connector,
		gpascii.WithRetries(cm.cfg.Retries),
		gpascii.WithBackoff(backoff, 25*backoff),
		gpascii.WithSessionOptions(sessionOpts...),
		gpascii.WithManagerLogger(entry),
	)
	tracker := axis.NewTracker(manager,
		axis.WithPollInterval(time.Duration(cm.cfg.PollIntervalMs)*time.Millisecond),
		axis.WithTolerance(cm.cfg.Tolerance),
		axis.WithLogger(entry),
	)

	return &controllerConn{manager: manager, tracker: tracker}
}

// ping подключается при необходимости, читает системное время контроллера
// и возвращает версию прошивки.
func ping(ctx context.Context, conn *controllerConn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	session, err := conn.manager.Connect(ctx)
	if err != nil {
		return "", err
	}
	_, err = conn.manager.GetVariable(ctx, "sys.time")
	return session.Version(), err
}

func (cm *ConnectionManager) CreateConnection(req models.ConnectionRequest) (*models.ConnectionInfo, error) {
	_, _, err := net.SplitHostPort(req.EndpointURL)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.InvalidDataCode,
			fmt.Sprintf("неверный формат endpoint_url. Ожидается 'IP:PORT', получено '%s'", req.EndpointURL), err, true)
	}

	existing, err := cm.dbRepo.GetByEndpoint(req.EndpointURL)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ошибка при проверке контроллера в БД: %w", err)
	}
	if existing != nil {
		cm.mu.RLock()
		_, exists := cm.pool[existing.SessionID]
		cm.mu.RUnlock()
		if exists {
			return nil, fmt.Errorf("подключение для '%s' уже активно с SessionID %s: %w", req.EndpointURL, existing.SessionID, apperrors.ErrAlreadyExists)
		}
		cm.logger.Warn("Connection for endpoint exists in DB but not in pool. Deleting old DB record and creating a new session.", "endpoint", req.EndpointURL)
		_ = cm.dbRepo.Delete(existing.SessionID)
	}

	sessionID := uuid.New().String()
	conn := cm.newController(req.EndpointURL)
	conn.info = &models.ConnectionInfo{
		SessionID: sessionID,
		Endpoint:  req.EndpointURL,
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
		UseCount:  1,
	}

	version, err := ping(context.Background(), conn)
	if err != nil {
		_ = conn.manager.Close()
		return nil, fmt.Errorf("первичная проверка подключения провалена: %w", err)
	}
	conn.info.Version = version
	conn.info.IsHealthy = true

	toSave := &entities.PpmacController{
		SessionID:   sessionID,
		EndpointURL: req.EndpointURL,
		Status:      entities.StatusConnected,
	}
	if err := cm.dbRepo.Create(toSave); err != nil {
		_ = conn.manager.Close()
		return nil, fmt.Errorf("не удалось сохранить новое подключение %s в БД: %w", sessionID, err)
	}

	cm.mu.Lock()
	cm.pool[sessionID] = conn
	size := len(cm.pool)
	cm.mu.Unlock()
	cm.metrics.SetConnections(size)

	cm.logger.Info("Connection created successfully", "sessionID", sessionID, "endpoint", req.EndpointURL, "version", conn.info.Version)
	return conn.info, nil
}

func (cm *ConnectionManager) RestoreConnection(controller entities.PpmacController) (*models.ConnectionInfo, error) {
	conn := cm.newController(controller.EndpointURL)
	conn.info = &models.ConnectionInfo{
		SessionID: controller.SessionID,
		Endpoint:  controller.EndpointURL,
		CreatedAt: controller.CreatedAt,
		LastUsed:  time.Now(),
	}

	version, err := ping(context.Background(), conn)
	conn.info.Version = version
	conn.info.IsHealthy = err == nil

	// Скан не переживает перезапуск сервиса.
	if controller.Status == entities.StatusScanning {
		if uerr := cm.dbRepo.UpdateStatus(controller.SessionID, entities.StatusConnected); uerr != nil {
			cm.logger.Warn("Failed to reset scanning status", "sessionID", controller.SessionID, "error", uerr)
		}
	}

	cm.mu.Lock()
	cm.pool[controller.SessionID] = conn
	size := len(cm.pool)
	cm.mu.Unlock()
	cm.metrics.SetConnections(size)

	return conn.info, err
}

func (cm *ConnectionManager) GetConnection(sessionID string) (*models.ConnectionInfo, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	conn, found := cm.pool[sessionID]
	if !found {
		return nil, false
	}
	return conn.info, true
}

func (cm *ConnectionManager) GetAllConnections() []*models.ConnectionInfo {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	conns := make([]*models.ConnectionInfo, 0, len(cm.pool))
	for _, conn := range cm.pool {
		conns = append(conns, conn.info)
	}
	return conns
}

func (cm *ConnectionManager) DeleteConnection(sessionID string) error {
	// Сначала останавливаем скан, если он был
	cm.scanMgr.StopScanForController(sessionID)

	cm.mu.Lock()
	conn, exists := cm.pool[sessionID]
	delete(cm.pool, sessionID)
	size := len(cm.pool)
	cm.mu.Unlock()

	if !exists {
		err := cm.dbRepo.Delete(sessionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("ошибка удаления сессии '%s' из БД: %w", sessionID, err)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("сессия '%s' не найдена ни в активном пуле, ни в БД: %w", sessionID, apperrors.ErrSessionNotFound)
		}
		cm.logger.Info("Session (not in pool) successfully deleted from DB.", "sessionID", sessionID)
		return nil
	}

	_ = conn.manager.Close()
	cm.metrics.SetConnections(size)

	if err := cm.dbRepo.Delete(sessionID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("ошибка удаления сессии '%s' из БД: %w", sessionID, err)
	}

	cm.logger.Info("Session deleted successfully.", "sessionID", sessionID)
	return nil
}

func (cm *ConnectionManager) CheckConnection(sessionID string) (*models.ConnectionInfo, error) {
	conn, err := cm.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	version, err := ping(context.Background(), conn)

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if version != "" {
		conn.info.Version = version
	}
	previousHealth := conn.info.IsHealthy
	conn.info.IsHealthy = err == nil
	conn.info.LastUsed = time.Now()

	if previousHealth != conn.info.IsHealthy {
		cm.logger.Info("Session health status changed", "sessionID", sessionID, "from", previousHealth, "to", conn.info.IsHealthy)
	}

	return conn.info, err
}

// CloseAll закрывает все соединения пула при остановке сервиса.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for sessionID, conn := range cm.pool {
		cm.scanMgr.StopScanForController(sessionID)
		_ = conn.manager.Close()
	}
	cm.pool = make(map[string]*controllerConn)
	cm.metrics.SetConnections(0)
}

// lookup возвращает подключение и отмечает его использование.
func (cm *ConnectionManager) lookup(sessionID string) (*controllerConn, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.pool[sessionID]
	if !ok {
		return nil, fmt.Errorf("сессия '%s': %w", sessionID, apperrors.ErrSessionNotFound)
	}
	conn.info.LastUsed = time.Now()
	return conn, nil
}
