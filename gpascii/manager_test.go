package gpascii_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/gpascii/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRetriesUnreachable(t *testing.T) {
	var attempts atomic.Int32
	connector := gpascii.ConnectorFunc(func(ctx context.Context, endpoint string) (net.Conn, error) {
		attempts.Add(1)
		return nil, errors.New("connection refused")
	})

	m := gpascii.NewManager("10.0.0.1:1025", connector,
		gpascii.WithRetries(4),
		gpascii.WithBackoff(time.Millisecond, 4*time.Millisecond))
	defer m.Close()

	_, err := m.Connect(context.Background())
	var connErr *gpascii.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, int32(4), attempts.Load())
	assert.Equal(t, gpascii.StateFailed, m.State())

	// Следующий вызов начинает попытки заново, а не возвращает прошлую ошибку.
	_, err = m.Connect(context.Background())
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, int32(8), attempts.Load())
}

func TestManagerReusesLiveSession(t *testing.T) {
	ctrl := sim.New()
	m := gpascii.NewManager("sim", ctrl.Connector())
	defer m.Close()

	first, err := m.Connect(context.Background())
	require.NoError(t, err)
	second, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, ctrl.Connects())
	assert.Equal(t, gpascii.StateConnected, m.State())
}

func TestManagerRecoversAfterOutage(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetOffline(true)
	m := gpascii.NewManager("sim", ctrl.Connector(),
		gpascii.WithRetries(2),
		gpascii.WithBackoff(time.Millisecond, time.Millisecond))
	defer m.Close()

	_, err := m.Connect(context.Background())
	require.Error(t, err)

	ctrl.SetOffline(false)
	_, err = m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gpascii.StateConnected, m.State())
}

func TestManagerReconnectsOnDroppedConnection(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetMotorStatus(30, 0, 1, true, true)
	m := gpascii.NewManager("sim", ctrl.Connector(), gpascii.WithBackoff(time.Millisecond, time.Millisecond))
	defer m.Close()

	v, err := m.GetVariable(context.Background(), "motor[30].actpos")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Float64())

	ctrl.DropConnections()
	require.Eventually(t, func() bool { return m.State() == gpascii.StateDisconnected }, time.Second, 5*time.Millisecond)

	v, err = m.GetVariable(context.Background(), "motor[30].actpos")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Float64())
	assert.Equal(t, 2, ctrl.Connects())

	cached, ok := m.Store().Get("motor[30].actpos")
	require.True(t, ok)
	assert.Equal(t, 1.0, cached.Value.Float64())
}

func TestManagerClosed(t *testing.T) {
	ctrl := sim.New()
	m := gpascii.NewManager("sim", ctrl.Connector())
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	_, err = m.Connect(context.Background())
	assert.ErrorIs(t, err, gpascii.ErrClosed)
}
