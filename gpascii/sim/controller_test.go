package sim

import (
	"testing"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func armAxis(t *testing.T, c *Controller, st *connState, axis int, start, end float64) {
	t.Helper()
	body := c.execute(st, "#1 "+
		motorVar(axis, "flystart")+"="+gpascii.Float(start).String()+" "+
		motorVar(axis, "flyend")+"="+gpascii.Float(end).String()+" "+
		motorVar(axis, "flyarm")+"=1")
	require.Equal(t, "#1 ", body)
}

func TestFlyScanMotion(t *testing.T) {
	c := New()
	c.SetMotorStatus(30, 0, 1, true, true)
	st := &connState{loggedIn: true}

	armAxis(t, c, st, 30, 0, 2)
	require.Equal(t, "#2 ", c.execute(st, "#2 fly.npoints=4"))
	require.Equal(t, "#3 ", c.execute(st, "#3 fly.start=1"))
	assert.True(t, c.Running())

	c.Step()
	c.Step()
	assert.Equal(t, "#4 fly.tick=2 motor[30].actpos=1.0 motor[30].inpos=0", c.execute(st, "#4 fly.tick motor[30].actpos motor[30].inpos"))

	c.Step()
	c.Step()
	assert.False(t, c.Running())

	status, _ := c.Get("fly.status")
	assert.Equal(t, int64(FlyDone), status.Int64())
	inpos, _ := c.Get("motor[30].inpos")
	assert.True(t, inpos.Bool())
	tick4, ok := c.Get("fly.ticktime[4]")
	require.True(t, ok)
	assert.InDelta(t, 0.004, tick4.Float64(), 1e-9)
}

func TestFlyScanAbortAndFault(t *testing.T) {
	c := New()
	c.SetMotorStatus(31, 0, 0, true, true)
	st := &connState{loggedIn: true}

	assert.Contains(t, c.execute(st, "#1 fly.start=1"), "no axes armed")

	armAxis(t, c, st, 31, 0, 1)
	c.execute(st, "#2 fly.npoints=10 fly.start=1")
	c.Step()
	c.execute(st, "#3 fly.abort=1")
	assert.False(t, c.Running())
	status, _ := c.Get("fly.status")
	assert.Equal(t, int64(FlyIdle), status.Int64())

	armAxis(t, c, st, 31, 0, 1)
	c.execute(st, "#4 fly.start=1")
	c.Step()
	c.InjectFault(7)
	status, _ = c.Get("fly.status")
	assert.Equal(t, int64(FlyFault), status.Int64())
	fault, _ := c.Get("fly.fault")
	assert.Equal(t, int64(7), fault.Int64())
}

func TestControllerErrors(t *testing.T) {
	c := New()
	st := &connState{loggedIn: true}

	assert.Equal(t, "#1 error #20: unknown variable: motor[5].actpos", c.execute(st, "#1 motor[5].actpos"))
	assert.Equal(t, "#2 error #21: read-only: fly.tick", c.execute(st, "#2 fly.tick=4"))
	assert.Equal(t, "#3 error #22: out of range: fly.npoints", c.execute(st, "#3 fly.npoints=0"))
	assert.Equal(t, "#4 ver=2.5.4.0", c.execute(st, "#4 ver"))

	locked := New(WithCredentials("root", "pw"))
	assert.Contains(t, locked.execute(&connState{}, "#1 ver"), "access denied")
}
