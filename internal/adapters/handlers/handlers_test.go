package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iwtcode/ppmacAdapter/axis"
	"github.com/iwtcode/ppmacAdapter/fly"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/internal/adapters/handlers"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
	apperrors "github.com/iwtcode/ppmacAdapter/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUsecases struct {
	mock.Mock
}

func (m *mockUsecases) CreateConnection(req models.ConnectionRequest) (*models.ConnectionInfo, error) {
	args := m.Called(req)
	info, _ := args.Get(0).(*models.ConnectionInfo)
	return info, args.Error(1)
}

func (m *mockUsecases) RestoreConnection(c entities.PpmacController) (*models.ConnectionInfo, error) {
	args := m.Called(c)
	info, _ := args.Get(0).(*models.ConnectionInfo)
	return info, args.Error(1)
}

func (m *mockUsecases) GetAllConnections() []*models.ConnectionInfo {
	conns, _ := m.Called().Get(0).([]*models.ConnectionInfo)
	return conns
}

func (m *mockUsecases) DeleteConnection(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *mockUsecases) CheckConnection(sessionID string) (*models.ConnectionInfo, error) {
	args := m.Called(sessionID)
	info, _ := args.Get(0).(*models.ConnectionInfo)
	return info, args.Error(1)
}

func (m *mockUsecases) GetVariables(ctx context.Context, sessionID string, names []string) ([]ppmodels.VariableInfo, error) {
	args := m.Called(sessionID, names)
	vars, _ := args.Get(0).([]ppmodels.VariableInfo)
	return vars, args.Error(1)
}

func (m *mockUsecases) SetVariable(ctx context.Context, req models.SetVariableRequest) error {
	return m.Called(req).Error(0)
}

func (m *mockUsecases) RegisterAxis(req models.RegisterAxisRequest) error {
	return m.Called(req).Error(0)
}

func (m *mockUsecases) AxisStatus(ctx context.Context, sessionID, name string) (ppmodels.AxisStatus, error) {
	args := m.Called(sessionID, name)
	st, _ := args.Get(0).(ppmodels.AxisStatus)
	return st, args.Error(1)
}

func (m *mockUsecases) StartScan(ctx context.Context, req models.ScanRequest) (*models.ScanInfo, error) {
	args := m.Called(req)
	info, _ := args.Get(0).(*models.ScanInfo)
	return info, args.Error(1)
}

func (m *mockUsecases) AbortScan(ctx context.Context, sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *mockUsecases) GetScan(sessionID string) (*models.ScanInfo, error) {
	args := m.Called(sessionID)
	info, _ := args.Get(0).(*models.ScanInfo)
	return info, args.Error(1)
}

func newRouter(t *testing.T) (http.Handler, *mockUsecases) {
	t.Helper()
	uc := &mockUsecases{}
	logger := logging.NewLogger(&logging.Config{Enabled: false}, "TEST")
	h := handlers.NewHandler(uc, logger)
	router := handlers.ProvideRouter(h, &config.AppConfig{GinMode: "test"}, nil, prometheus.NewRegistry())
	return router, uc
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateConnection(t *testing.T) {
	router, uc := newRouter(t)
	req := models.ConnectionRequest{EndpointURL: "192.168.0.200:1025"}
	uc.On("CreateConnection", req).Return(&models.ConnectionInfo{SessionID: "s1", Endpoint: req.EndpointURL}, nil).Once()
	uc.On("CreateConnection", req).Return(nil, fmt.Errorf("active: %w", apperrors.ErrAlreadyExists)).Once()

	rec := do(t, router, http.MethodPost, "/api/v1/connect", req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.CreateConnectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.ConnectionInfo.SessionID)

	rec = do(t, router, http.MethodPost, "/api/v1/connect", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "error", decodeError(t, rec).Status)

	rec = do(t, router, http.MethodPost, "/api/v1/connect", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetVariables(t *testing.T) {
	router, uc := newRouter(t)
	uc.On("GetVariables", "s1", []string{"p[1]", "sys.time", "motor[1].actpos"}).
		Return([]ppmodels.VariableInfo{{Name: "p[1]", Value: "1.5", Kind: "float"}}, nil)

	rec := do(t, router, http.MethodGet, "/api/v1/variables?session_id=s1&name=p%5B1%5D,sys.time&name=motor%5B1%5D.actpos", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.VariablesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Variables, 1)
	assert.Equal(t, "1.5", resp.Variables[0].Value)

	rec = do(t, router, http.MethodGet, "/api/v1/variables?name=p%5B1%5D", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"session", fmt.Errorf("x: %w", apperrors.ErrSessionNotFound), http.StatusNotFound},
		{"unknown variable", &gpascii.UnknownVariableError{Name: "q[1]"}, http.StatusNotFound},
		{"validation", &gpascii.ValidationError{Name: "fly.tick", Reason: "read-only"}, http.StatusBadRequest},
		{"not ready", &fly.NotReadyError{Reasons: []string{"axis 'x' is not in position"}}, http.StatusBadRequest},
		{"unknown axis", fmt.Errorf("x: %w", axis.ErrUnknownAxis), http.StatusBadRequest},
		{"scan active", fmt.Errorf("x: %w", apperrors.ErrScanActive), http.StatusConflict},
		{"invalid state", fly.ErrInvalidState, http.StatusConflict},
		{"timeout", gpascii.ErrTimeout, http.StatusGatewayTimeout},
		{"connection", gpascii.NewConnectionError("10.0.0.1:1025", "dial failed", nil), http.StatusBadGateway},
		{"app error", apperrors.NewAppError(apperrors.InvalidDataCode, "bad", nil, true), apperrors.InvalidDataCode},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, uc := newRouter(t)
			uc.On("AxisStatus", "s1", "x").Return(nil, tt.err)

			rec := do(t, router, http.MethodGet, "/api/v1/axes/status?session_id=s1&name=x", nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestScanEndpoints(t *testing.T) {
	router, uc := newRouter(t)
	req := models.ScanRequest{
		SessionID: "s1",
		Moves:     []models.MoveRequest{{Axis: "x", Start: 0, End: 1, Velocity: 1, Acceleration: 10}},
		Points:    100,
	}
	uc.On("StartScan", req).Return(&models.ScanInfo{SessionID: "s1", Status: ppmodels.ScanRunning}, nil)
	uc.On("GetScan", "s1").Return(&models.ScanInfo{SessionID: "s1", Status: ppmodels.ScanComplete, Points: 100}, nil)
	uc.On("AbortScan", "s1").Return(nil)

	rec := do(t, router, http.MethodPost, "/api/v1/scans", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.ScanStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ppmodels.ScanRunning, resp.Scan.Status)

	rec = do(t, router, http.MethodGet, "/api/v1/scans/status?session_id=s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.Scan.Points)

	rec = do(t, router, http.MethodPost, "/api/v1/scans/abort", models.SessionRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	bad := req
	bad.Points = 0
	rec = do(t, router, http.MethodPost, "/api/v1/scans", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	uc.AssertExpectations(t)
}

func TestRegisterAxis(t *testing.T) {
	router, uc := newRouter(t)
	req := models.RegisterAxisRequest{SessionID: "s1", Name: "x", Axis: 3}
	uc.On("RegisterAxis", req).Return(&axis.DuplicateAxisError{Name: "x", Axis: 3, Existing: "y"})

	rec := do(t, router, http.MethodPost, "/api/v1/axes", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newRouter(t)
	rec := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConnectionLifecycle(t *testing.T) {
	router, uc := newRouter(t)
	now := time.Now()
	older := &models.ConnectionInfo{SessionID: "s1", CreatedAt: now.Add(-time.Minute), IsHealthy: true}
	newer := &models.ConnectionInfo{SessionID: "s2", CreatedAt: now}
	uc.On("GetAllConnections").Return([]*models.ConnectionInfo{newer, older})

	rec := do(t, router, http.MethodGet, "/api/v1/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.GetConnectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.PoolSize)
	assert.Equal(t, 1, list.Healthy)
	assert.Equal(t, "s1", list.Connections[0].SessionID)

	t.Run("check healthy", func(t *testing.T) {
		uc.On("CheckConnection", "s1").Return(older, nil).Once()
		rec := do(t, router, http.MethodPost, "/api/v1/connect/check", models.SessionRequest{SessionID: "s1"})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.CheckConnectionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Empty(t, resp.Error)
	})

	t.Run("check unreachable controller", func(t *testing.T) {
		uc.On("CheckConnection", "s2").Return(newer, gpascii.NewConnectionError("10.0.0.2:1025", "dial failed", nil)).Once()
		rec := do(t, router, http.MethodPost, "/api/v1/connect/check?session_id=s2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.CheckConnectionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Contains(t, resp.Error, "dial failed")
	})

	t.Run("check unknown session", func(t *testing.T) {
		uc.On("CheckConnection", "nope").Return(nil, fmt.Errorf("x: %w", apperrors.ErrSessionNotFound)).Once()
		rec := do(t, router, http.MethodPost, "/api/v1/connect/check", models.SessionRequest{SessionID: "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		uc.On("DeleteConnection", "s1").Return(nil).Once()
		rec := do(t, router, http.MethodDelete, "/api/v1/connect?session_id=s1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.MessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "s1")

		rec = do(t, router, http.MethodDelete, "/api/v1/connect", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
