package ppmac_service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iwtcode/ppmacAdapter/fly"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
	apperrors "github.com/iwtcode/ppmacAdapter/pkg/errors"
)

const (
	publishTimeout = 5 * time.Second
	abortTimeout   = 5 * time.Second
)

// controllerLookup определяет методы, которые ScanManager вызывает у ConnectionManager.
type controllerLookup interface {
	lookup(sessionID string) (*controllerConn, error)
}

type activeScan struct {
	coord    *fly.Coordinator
	endpoint string
	started  time.Time
}

type ScanManager struct {
	dbRepo      interfaces.PpmacControllerRepository
	producer    interfaces.KafkaService
	metrics     interfaces.Metrics
	cfg         config.PpmacConfig
	logger      *logging.Logger
	controllers controllerLookup
	activeScans map[string]*activeScan
	scansMutex  sync.Mutex
	wg          sync.WaitGroup
}

func NewScanManager(
	dbRepo interfaces.PpmacControllerRepository,
	producer interfaces.KafkaService,
	metrics interfaces.Metrics,
	cfg config.PpmacConfig,
	logger *logging.Logger,
) *ScanManager {
	return &ScanManager{
		dbRepo:      dbRepo,
		producer:    producer,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger.WithPrefix("SCANNER"),
		activeScans: make(map[string]*activeScan),
	}
}

func (sm *ScanManager) IsScanActive(sessionID string) bool {
	sm.scansMutex.Lock()
	defer sm.scansMutex.Unlock()
	scan, exists := sm.activeScans[sessionID]
	return exists && !scan.coord.Status().Terminal()
}

// StartScan программирует и запускает скан. Завершенный скан сессии заменяется новым.
func (sm *ScanManager) StartScan(ctx context.Context, sessionID string, traj ppmodels.Trajectory, timeout time.Duration) (*models.ScanInfo, error) {
	conn, err := sm.controllers.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = time.Duration(sm.cfg.ScanTimeoutMs) * time.Millisecond
	}

	scan := &activeScan{endpoint: conn.info.Endpoint}
	scan.coord = fly.NewCoordinator(conn.manager, conn.tracker,
		fly.WithPollInterval(time.Duration(sm.cfg.PollIntervalMs)*time.Millisecond),
		fly.WithScanTimeout(timeout),
		fly.WithEventHandler(sm.publisher(sessionID, conn.info.Endpoint)),
		fly.WithLogger(sm.logger.WithPrefix(sessionID).Entry()),
	)

	sm.scansMutex.Lock()
	if prev, exists := sm.activeScans[sessionID]; exists && !prev.coord.Status().Terminal() {
		sm.scansMutex.Unlock()
		return nil, fmt.Errorf("сессия '%s': %w", sessionID, apperrors.ErrScanActive)
	}
	// Резервируем сессию на время программирования.
	sm.activeScans[sessionID] = scan
	sm.scansMutex.Unlock()

	release := func() {
		sm.scansMutex.Lock()
		if sm.activeScans[sessionID] == scan {
			delete(sm.activeScans, sessionID)
		}
		sm.scansMutex.Unlock()
	}

	if err := scan.coord.Program(ctx, traj); err != nil {
		release()
		return nil, err
	}
	if err := scan.coord.Start(ctx); err != nil {
		_ = scan.coord.Abort(context.WithoutCancel(ctx))
		release()
		return nil, err
	}
	scan.started = time.Now()

	if err := sm.dbRepo.UpdateStatus(sessionID, entities.StatusScanning); err != nil {
		sm.logger.Warn("Failed to update status in DB when starting scan", "sessionID", sessionID, "error", err)
	}
	sm.metrics.ScanStarted()
	sm.metrics.SetActiveScans(sm.activeCount())

	sm.wg.Add(1)
	go sm.watch(sessionID, scan)

	sm.logger.Info("Scan started", "sessionID", sessionID, "endpoint", scan.endpoint, "points", traj.Points, "axes", len(traj.Moves))
	return sm.info(sessionID, scan), nil
}

// watch ждет завершения скана и обновляет статус и метрики.
func (sm *ScanManager) watch(sessionID string, scan *activeScan) {
	defer sm.wg.Done()

	res, err := scan.coord.Wait(context.Background())
	if err != nil {
		sm.logger.Error("Failed to wait for scan", "sessionID", sessionID, "error", err)
		return
	}

	if err := sm.dbRepo.UpdateStatus(sessionID, entities.StatusConnected); err != nil {
		sm.logger.Warn("Failed to update status in DB when scan finished", "sessionID", sessionID, "error", err)
	}
	sm.metrics.ScanFinished(string(res.Status), time.Since(scan.started))
	sm.metrics.SetActiveScans(sm.activeCount())

	sm.logger.Info("Scan finished", "sessionID", sessionID, "status", res.Status, "points", len(res.Points), "error", res.Error)
}

// publisher отправляет точки и итог скана в Kafka с ключом сессии.
func (sm *ScanManager) publisher(sessionID, endpoint string) fly.EventHandler {
	return func(e fly.Event) {
		msg := models.ScanEvent{
			SessionID: sessionID,
			Endpoint:  endpoint,
			Timestamp: time.Now(),
		}
		switch e.Kind {
		case fly.EventPoint:
			point := e.Point
			msg.Type = "point"
			msg.Point = &point
			sm.metrics.PointsRecorded(1)
		case fly.EventResult:
			result := e.Result
			msg.Type = "result"
			msg.Result = &result
		default:
			return
		}

		jsonData, err := json.Marshal(msg)
		if err != nil {
			sm.logger.Error("Failed to serialize scan event for Kafka", "sessionID", sessionID, "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := sm.producer.Produce(ctx, []byte(sessionID), jsonData); err != nil {
			sm.metrics.PublishFailed()
			sm.logger.Error("Failed to send scan event to Kafka", "sessionID", sessionID, "type", msg.Type, "error", err)
		}
	}
}

func (sm *ScanManager) AbortScan(ctx context.Context, sessionID string) error {
	sm.scansMutex.Lock()
	scan, exists := sm.activeScans[sessionID]
	sm.scansMutex.Unlock()
	if !exists {
		return fmt.Errorf("сессия '%s': %w", sessionID, apperrors.ErrNoScan)
	}

	if err := scan.coord.Abort(ctx); err != nil {
		return err
	}
	sm.logger.Info("Scan aborted", "sessionID", sessionID)
	return nil
}

func (sm *ScanManager) GetScan(sessionID string) (*models.ScanInfo, error) {
	sm.scansMutex.Lock()
	scan, exists := sm.activeScans[sessionID]
	sm.scansMutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("сессия '%s': %w", sessionID, apperrors.ErrNoScan)
	}
	return sm.info(sessionID, scan), nil
}

// StopScanForController прерывает скан сессии и забывает его.
func (sm *ScanManager) StopScanForController(sessionID string) {
	sm.scansMutex.Lock()
	scan, exists := sm.activeScans[sessionID]
	delete(sm.activeScans, sessionID)
	sm.scansMutex.Unlock()
	if !exists {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	if err := scan.coord.Abort(ctx); err != nil {
		sm.logger.Warn("Failed to abort scan for removed controller", "sessionID", sessionID, "error", err)
	}
	sm.logger.Info("Scan stopped", "sessionID", sessionID)
}

// Wait ждет завершения наблюдателей всех запущенных сканов.
func (sm *ScanManager) Wait() {
	sm.wg.Wait()
}

func (sm *ScanManager) activeCount() int {
	sm.scansMutex.Lock()
	defer sm.scansMutex.Unlock()
	n := 0
	for _, scan := range sm.activeScans {
		if !scan.coord.Status().Terminal() {
			n++
		}
	}
	return n
}

func (sm *ScanManager) info(sessionID string, scan *activeScan) *models.ScanInfo {
	res := scan.coord.Result()
	return &models.ScanInfo{
		SessionID: sessionID,
		Status:    res.Status,
		Points:    len(res.Points),
		StartedAt: scan.started,
		Error:     res.Error,
	}
}
