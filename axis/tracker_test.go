package axis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iwtcode/ppmacAdapter/axis"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/gpascii/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positioner string

func (p positioner) Name() string { return string(p) }

func newTracker(t *testing.T, ctrl *sim.Controller, opts ...axis.Option) *axis.Tracker {
	t.Helper()
	m := gpascii.NewManager("sim", ctrl.Connector())
	t.Cleanup(func() { _ = m.Close() })
	return axis.NewTracker(m, opts...)
}

func TestRegister(t *testing.T) {
	tr := newTracker(t, sim.New())

	require.NoError(t, tr.Register("testx", 30))
	require.NoError(t, tr.Register("testx", 30), "same pair is a no-op")

	var dup *axis.DuplicateAxisError
	err := tr.Register("testy", 30)
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "testx", dup.Existing)

	err = tr.Register("testx", 31)
	require.True(t, errors.As(err, &dup))

	require.NoError(t, tr.RegisterPositioner(positioner("testz"), 32))
	assert.Contains(t, tr.Positioners(), "testz")
	assert.Equal(t, []string{"testx", "testz"}, tr.Names())

	n, ok := tr.Lookup("testz")
	require.True(t, ok)
	assert.Equal(t, 32, n)
}

func TestStatus(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetMotorStatus(30, 0, 1, true, true)
	tr := newTracker(t, ctrl)
	require.NoError(t, tr.Register("testx", 30))

	st, err := tr.Status(context.Background(), "testx")
	require.NoError(t, err)
	assert.Equal(t, "testx", st.Name)
	assert.Equal(t, 30, st.Number)
	assert.Equal(t, 0.0, st.HomePosition)
	assert.Equal(t, 1.0, st.ActualPosition)
	assert.True(t, st.Ready())

	byNumber, err := tr.StatusByNumber(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, st.ActualPosition, byNumber.ActualPosition)

	_, err = tr.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, axis.ErrUnknownAxis)

	_, err = tr.StatusByNumber(context.Background(), 99)
	var unknown *gpascii.UnknownVariableError
	assert.True(t, errors.As(err, &unknown))
}

func TestWaitUntilInPosition(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetMotorStatus(30, 0, 1, true, true)
	ctrl.SetMotorStatus(31, 0, 1, false, true)
	tr := newTracker(t, ctrl, axis.WithPollInterval(10*time.Millisecond))
	require.NoError(t, tr.Register("testx", 30))
	require.NoError(t, tr.Register("testy", 31))

	t.Run("settled", func(t *testing.T) {
		start := time.Now()
		ok, err := tr.WaitUntilInPosition(context.Background(), "testx", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("timeout", func(t *testing.T) {
		start := time.Now()
		ok, err := tr.WaitUntilInPosition(context.Background(), "testy", 60*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("settles later", func(t *testing.T) {
		go func() {
			time.Sleep(30 * time.Millisecond)
			ctrl.Set("motor[31].inpos", gpascii.Bool(true))
		}()
		ok, err := tr.WaitUntilInPosition(context.Background(), "testy", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctrl.Set("motor[31].inpos", gpascii.Bool(false))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ok, err := tr.WaitUntilInPosition(ctx, "testy", time.Second)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWatchReportsChanges(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetMotorStatus(30, 0, 1, true, true)
	tr := newTracker(t, ctrl, axis.WithPollInterval(5*time.Millisecond))
	require.NoError(t, tr.Register("testx", 30))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := tr.Watch(ctx, "testx")

	first := <-updates
	require.NoError(t, first.Err)
	assert.Equal(t, 1.0, first.Status.ActualPosition)

	ctrl.Set("motor[30].actpos", gpascii.Float(2))
	select {
	case next := <-updates:
		require.NoError(t, next.Err)
		assert.Equal(t, 2.0, next.Status.ActualPosition)
	case <-time.After(time.Second):
		t.Fatal("no update after position change")
	}

	cancel()
	for range updates {
	}
}

func TestStatusWithoutBatching(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetMotorStatus(30, 0.5, 1.25, true, false)
	m := gpascii.NewManager("sim", ctrl.Connector(),
		gpascii.WithSessionOptions(gpascii.WithBatching(false)))
	t.Cleanup(func() { _ = m.Close() })
	tr := axis.NewTracker(m)
	require.NoError(t, tr.Register("testx", 30))

	st, err := tr.Status(context.Background(), "testx")
	require.NoError(t, err)
	assert.Equal(t, 0.5, st.HomePosition)
	assert.Equal(t, 1.25, st.ActualPosition)
	assert.True(t, st.InPosition)
	assert.False(t, st.ClosedLoop)
	assert.False(t, st.Ready())
}

func TestNonPositivePollIntervalUsesDefault(t *testing.T) {
	ctrl := sim.New()
	ctrl.SetMotorStatus(30, 0, 1, true, true)

	for _, interval := range []time.Duration{0, -time.Second} {
		tr := newTracker(t, ctrl, axis.WithPollInterval(interval))
		require.NoError(t, tr.Register("testx", 30))

		ok, err := tr.WaitUntilInPosition(context.Background(), "testx", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
