package ppmac_service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/gpascii/sim"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	"github.com/iwtcode/ppmacAdapter/internal/services/ppmac_service"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
	apperrors "github.com/iwtcode/ppmacAdapter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const endpoint = "127.0.0.1:1025"

// memRepo хранит контроллеры в памяти.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]entities.PpmacController
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]entities.PpmacController)}
}

func (r *memRepo) Create(c *entities.PpmacController) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.SessionID] = *c
	return nil
}

func (r *memRepo) GetByEndpoint(endpointURL string) (*entities.PpmacController, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.EndpointURL == endpointURL {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) UpdateStatus(sessionID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	r.rows[sessionID] = c
	return nil
}

func (r *memRepo) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[sessionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, sessionID)
	return nil
}

func (r *memRepo) GetBySessionID(sessionID string) (*entities.PpmacController, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memRepo) GetAll() ([]entities.PpmacController, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.PpmacController, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, c)
	}
	return out, nil
}

func (r *memRepo) status(sessionID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[sessionID].Status
}

type mockProducer struct {
	mock.Mock

	mu       sync.Mutex
	messages []models.ScanEvent
}

func (m *mockProducer) Produce(ctx context.Context, key, value []byte) error {
	var event models.ScanEvent
	if err := json.Unmarshal(value, &event); err == nil {
		m.mu.Lock()
		m.messages = append(m.messages, event)
		m.mu.Unlock()
	}
	return m.Called(ctx, string(key), value).Error(0)
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) events() []models.ScanEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ScanEvent(nil), m.messages...)
}

type metricsSnapshot struct {
	started     int
	finished    map[string]int
	points      int
	active      int
	connections int
	failed      int
}

// countingMetrics считает вызовы метрик.
type countingMetrics struct {
	mu sync.Mutex
	metricsSnapshot
}

func (m *countingMetrics) ScanStarted() { m.mu.Lock(); m.started++; m.mu.Unlock() }
func (m *countingMetrics) ScanFinished(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished == nil {
		m.finished = make(map[string]int)
	}
	m.finished[status]++
}
func (m *countingMetrics) PointsRecorded(n int) { m.mu.Lock(); m.points += n; m.mu.Unlock() }
func (m *countingMetrics) SetActiveScans(n int) { m.mu.Lock(); m.active = n; m.mu.Unlock() }
func (m *countingMetrics) SetConnections(n int) { m.mu.Lock(); m.connections = n; m.mu.Unlock() }
func (m *countingMetrics) PublishFailed()       { m.mu.Lock(); m.failed++; m.mu.Unlock() }
func (m *countingMetrics) snapshot() metricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	finished := make(map[string]int, len(m.finished))
	for k, v := range m.finished {
		finished[k] = v
	}
	out := m.metricsSnapshot
	out.finished = finished
	return out
}

type fixture struct {
	ctrl     *sim.Controller
	repo     *memRepo
	producer *mockProducer
	metrics  *countingMetrics
	service  interfaces.PpmacService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := sim.New()
	ctrl.SetMotorStatus(1, 0, 0, true, true)
	ctrl.SetMotorStatus(2, 0, 5, true, true)

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx, time.Millisecond)

	cfg := &config.AppConfig{Ppmac: config.PpmacConfig{
		TimeoutMs:      1000,
		Retries:        1,
		BackoffMs:      5,
		PollIntervalMs: 2,
		Tolerance:      1e-3,
		Batch:          true,
	}}
	logger := logging.NewLogger(&logging.Config{Enabled: false}, "TEST")

	f := &fixture{
		ctrl:     ctrl,
		repo:     newMemRepo(),
		producer: &mockProducer{},
		metrics:  &countingMetrics{},
	}
	f.service = ppmac_service.NewPpmacService(f.repo, f.producer, f.metrics, ctrl.Connector(), cfg, logger)

	t.Cleanup(func() {
		f.service.CloseAll()
		cancel()
	})
	return f
}

func (f *fixture) connect(t *testing.T) string {
	t.Helper()
	info, err := f.service.CreateConnection(models.ConnectionRequest{EndpointURL: endpoint})
	require.NoError(t, err)
	return info.SessionID
}

func TestCreateConnection(t *testing.T) {
	f := newFixture(t)

	info, err := f.service.CreateConnection(models.ConnectionRequest{EndpointURL: endpoint})
	require.NoError(t, err)
	assert.True(t, info.IsHealthy)
	assert.Equal(t, "2.5.4.0", info.Version)
	assert.Equal(t, entities.StatusConnected, f.repo.status(info.SessionID))
	assert.Equal(t, 1, f.metrics.snapshot().connections)

	_, err = f.service.CreateConnection(models.ConnectionRequest{EndpointURL: endpoint})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	_, err = f.service.CreateConnection(models.ConnectionRequest{EndpointURL: "no-port"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.InvalidDataCode, appErr.Code)
}

func TestCreateConnectionUnreachable(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetOffline(true)

	_, err := f.service.CreateConnection(models.ConnectionRequest{EndpointURL: endpoint})
	require.Error(t, err)
	assert.True(t, gpascii.IsConnectionError(err), "got %v", err)
	assert.Empty(t, f.service.GetAllConnections())
}

func TestDeleteConnection(t *testing.T) {
	f := newFixture(t)
	sessionID := f.connect(t)

	require.NoError(t, f.service.DeleteConnection(sessionID))
	_, found := f.service.GetConnection(sessionID)
	assert.False(t, found)
	assert.Equal(t, 0, f.metrics.snapshot().connections)

	assert.ErrorIs(t, f.service.DeleteConnection(sessionID), apperrors.ErrSessionNotFound)
}

func TestRestoreConnectionResetsScanningStatus(t *testing.T) {
	f := newFixture(t)
	row := entities.PpmacController{SessionID: "restored", EndpointURL: endpoint, Status: entities.StatusScanning}
	require.NoError(t, f.repo.Create(&row))

	info, err := f.service.RestoreConnection(row)
	require.NoError(t, err)
	assert.True(t, info.IsHealthy)
	assert.Equal(t, entities.StatusConnected, f.repo.status("restored"))

	checked, err := f.service.CheckConnection("restored")
	require.NoError(t, err)
	assert.Equal(t, int64(1), checked.UseCount)

	checked, err = f.service.CheckConnection("restored")
	require.NoError(t, err)
	assert.Equal(t, int64(2), checked.UseCount, "each check counts as one use")
}

func TestVariables(t *testing.T) {
	f := newFixture(t)
	sessionID := f.connect(t)
	ctx := context.Background()

	require.NoError(t, f.service.SetVariable(ctx, sessionID, "P[10]", "1.5"))
	v, _ := f.ctrl.Get("p[10]")
	assert.InDelta(t, 1.5, v.Float64(), 1e-9)

	vars, err := f.service.GetVariables(ctx, sessionID, []string{"p[10]", "Motor[2].ActPos"})
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "p[10]", vars[0].Name)
	assert.Equal(t, "motor[2].actpos", vars[1].Name)
	assert.Equal(t, "float", vars[1].Kind)

	var verr *gpascii.ValidationError
	assert.True(t, errors.As(f.service.SetVariable(ctx, sessionID, "p[10]", "abc"), &verr))

	_, err = f.service.GetVariables(ctx, "missing", []string{"p[10]"})
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestAxes(t *testing.T) {
	f := newFixture(t)
	sessionID := f.connect(t)

	require.NoError(t, f.service.RegisterAxis(sessionID, "x", 1))
	require.NoError(t, f.service.RegisterAxis(sessionID, "x", 1))
	assert.Error(t, f.service.RegisterAxis(sessionID, "x", 2))

	st, err := f.service.AxisStatus(context.Background(), sessionID, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Number)
	assert.True(t, st.Ready())
}

func TestScanPublishesEvents(t *testing.T) {
	f := newFixture(t)
	f.producer.On("Produce", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sessionID := f.connect(t)
	ctx := context.Background()
	require.NoError(t, f.service.RegisterAxis(sessionID, "x", 1))

	traj := ppmodels.Trajectory{
		Moves:  []ppmodels.Move{{Axis: "x", Start: 0, End: 1, Velocity: 1, Acceleration: 10}},
		Points: 10,
	}
	info, err := f.service.StartScan(ctx, sessionID, traj, 0)
	require.NoError(t, err)
	assert.Equal(t, ppmodels.ScanRunning, info.Status)

	_, err = f.service.StartScan(ctx, sessionID, traj, 0)
	assert.ErrorIs(t, err, apperrors.ErrScanActive)

	require.Eventually(t, func() bool {
		scan, err := f.service.GetScan(sessionID)
		return err == nil && scan.Status == ppmodels.ScanComplete
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, f.service.IsScanActive(sessionID))

	require.Eventually(t, func() bool {
		return f.repo.status(sessionID) == entities.StatusConnected && f.metrics.snapshot().finished["complete"] == 1
	}, time.Second, 5*time.Millisecond)

	events := f.producer.events()
	require.NotEmpty(t, events)
	points := 0
	for _, e := range events {
		assert.Equal(t, sessionID, e.SessionID)
		if e.Type == "point" {
			points++
		}
	}
	assert.Equal(t, 10, points)
	last := events[len(events)-1]
	assert.Equal(t, "result", last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, ppmodels.ScanComplete, last.Result.Status)

	m := f.metrics.snapshot()
	assert.Equal(t, 1, m.started)
	assert.Equal(t, 10, m.points)
	assert.Equal(t, 0, m.active)
	f.producer.AssertCalled(t, "Produce", mock.Anything, sessionID, mock.Anything)
}

func TestScanAbortAndPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.producer.On("Produce", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	sessionID := f.connect(t)
	ctx := context.Background()
	require.NoError(t, f.service.RegisterAxis(sessionID, "x", 1))

	assert.ErrorIs(t, f.service.AbortScan(ctx, sessionID), apperrors.ErrNoScan)
	_, err := f.service.GetScan(sessionID)
	assert.ErrorIs(t, err, apperrors.ErrNoScan)

	traj := ppmodels.Trajectory{
		Moves:  []ppmodels.Move{{Axis: "x", Start: 0, End: 1, Velocity: 1, Acceleration: 10}},
		Points: 100000,
	}
	_, err = f.service.StartScan(ctx, sessionID, traj, time.Minute)
	require.NoError(t, err)
	assert.True(t, f.service.IsScanActive(sessionID))

	require.NoError(t, f.service.AbortScan(ctx, sessionID))
	scan, err := f.service.GetScan(sessionID)
	require.NoError(t, err)
	assert.Equal(t, ppmodels.ScanAborted, scan.Status)
	assert.False(t, f.ctrl.Running())

	require.Eventually(t, func() bool {
		return f.metrics.snapshot().failed > 0
	}, time.Second, 5*time.Millisecond)
}

func TestScanNotReady(t *testing.T) {
	f := newFixture(t)
	sessionID := f.connect(t)
	f.ctrl.SetMotorStatus(1, 0, 0, false, true)
	require.NoError(t, f.service.RegisterAxis(sessionID, "x", 1))

	traj := ppmodels.Trajectory{
		Moves:  []ppmodels.Move{{Axis: "x", Start: 0, End: 1, Velocity: 1, Acceleration: 10}},
		Points: 10,
	}
	_, err := f.service.StartScan(context.Background(), sessionID, traj, 0)
	require.Error(t, err)
	_, err = f.service.GetScan(sessionID)
	assert.ErrorIs(t, err, apperrors.ErrNoScan)
	assert.Equal(t, 0, f.metrics.snapshot().started)
}
