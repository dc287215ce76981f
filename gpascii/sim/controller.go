// Package sim содержит программный контроллер, который говорит на протоколе gpascii.
// Используется в тестах и командой "ppmacctl sim" вместо реального контроллера.
package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
)

// Состояния fly-скана в переменной fly.status.
const (
	FlyIdle    = 0
	FlyRunning = 1
	FlyDone    = 2
	FlyFault   = -1
)

type Option func(*Controller)

// WithCredentials требует команду login перед любыми другими командами.
func WithCredentials(user, password string) Option {
	return func(c *Controller) {
		c.user = user
		c.password = password
	}
}

func WithVersion(version string) Option {
	return func(c *Controller) { c.version = version }
}

// WithTickPeriod задает интервал контроллерного времени на один шаг симуляции.
func WithTickPeriod(d time.Duration) Option {
	return func(c *Controller) { c.period = d.Seconds() }
}

func WithTolerance(tol float64) Option {
	return func(c *Controller) { c.tolerance = tol }
}

type scanState struct {
	running bool
	tick    int64
	npoints int64
	axes    []int
}

// Controller - симулятор контроллера движения.
type Controller struct {
	mu        sync.Mutex
	schema    *gpascii.Schema
	vars      map[string]gpascii.Value
	version   string
	user      string
	password  string
	tolerance float64
	period    float64
	clock     float64
	scan      scanState
	offline   bool
	connects  int
	conns     map[net.Conn]struct{}
}

type connState struct {
	loggedIn bool
}

// New создает симулятор в состоянии покоя.
func New(opts ...Option) *Controller {
	c := &Controller{
		schema:    gpascii.DefaultSchema(),
		vars:      make(map[string]gpascii.Value),
		version:   "2.5.4.0",
		tolerance: 1e-3,
		period:    0.001,
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.vars["fly.status"] = gpascii.Int(FlyIdle)
	c.vars["fly.tick"] = gpascii.Int(0)
	c.vars["fly.fault"] = gpascii.Int(0)
	c.vars["fly.npoints"] = gpascii.Int(1)
	c.vars["fly.start"] = gpascii.Bool(false)
	c.vars["fly.abort"] = gpascii.Bool(false)
	return c
}

// SetMotorStatus задает состояние оси напрямую, минуя протокол.
func (c *Controller) SetMotorStatus(axis int, homePos, actPos float64, inPosition, closedLoop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vars[motorVar(axis, "homepos")] = gpascii.Float(homePos)
	c.vars[motorVar(axis, "actpos")] = gpascii.Float(actPos)
	c.vars[motorVar(axis, "despos")] = gpascii.Float(actPos)
	c.vars[motorVar(axis, "inpos")] = gpascii.Bool(inPosition)
	c.vars[motorVar(axis, "closedloop")] = gpascii.Bool(closedLoop)
	c.vars[motorVar(axis, "flyarm")] = gpascii.Bool(false)
}

// Get возвращает текущее значение переменной.
func (c *Controller) Get(name string) (gpascii.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vars[gpascii.Normalize(name)]
	return v, ok
}

// Set записывает значение напрямую, без проверок схемы и побочных эффектов.
func (c *Controller) Set(name string, v gpascii.Value) {
	c.mu.Lock()
	c.vars[gpascii.Normalize(name)] = v
	c.mu.Unlock()
}

// SetOffline делает контроллер недоступным для новых подключений.
func (c *Controller) SetOffline(offline bool) {
	c.mu.Lock()
	c.offline = offline
	c.mu.Unlock()
}

// Connects возвращает число попыток подключения через Connector.
func (c *Controller) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Running сообщает, выполняется ли fly-скан.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scan.running
}

// InjectFault прерывает выполняющийся скан с кодом ошибки.
func (c *Controller) InjectFault(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vars["fly.fault"] = gpascii.Int(int64(code))
	c.vars["fly.status"] = gpascii.Int(FlyFault)
	for _, axis := range c.scan.axes {
		c.vars[motorVar(axis, "inpos")] = gpascii.Bool(false)
	}
	c.scan.running = false
}

// Step продвигает время контроллера на один период и скан на один триггер.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock += c.period
	if !c.scan.running {
		return
	}

	c.scan.tick++
	c.vars["fly.tick"] = gpascii.Int(c.scan.tick)
	c.vars[fmt.Sprintf("fly.ticktime[%d]", c.scan.tick)] = gpascii.Float(c.clock)

	frac := float64(c.scan.tick) / float64(c.scan.npoints)
	for _, axis := range c.scan.axes {
		start := c.vars[motorVar(axis, "flystart")].Float64()
		end := c.vars[motorVar(axis, "flyend")].Float64()
		pos := start + (end-start)*frac
		c.vars[motorVar(axis, "actpos")] = gpascii.Float(pos)
		c.vars[motorVar(axis, "despos")] = gpascii.Float(pos)
	}

	if c.scan.tick < c.scan.npoints {
		return
	}

	for _, axis := range c.scan.axes {
		end := c.vars[motorVar(axis, "flyend")]
		c.vars[motorVar(axis, "actpos")] = end
		c.vars[motorVar(axis, "despos")] = end
		c.vars[motorVar(axis, "inpos")] = gpascii.Bool(c.inPositionLocked(axis))
		c.vars[motorVar(axis, "flyarm")] = gpascii.Bool(false)
	}
	c.vars["fly.status"] = gpascii.Int(FlyDone)
	c.scan.running = false
}

// Run вызывает Step с заданным периодом до отмены контекста.
func (c *Controller) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Step()
		}
	}
}

// Connector возвращает подключение в памяти через net.Pipe.
func (c *Controller) Connector() gpascii.Connector {
	return gpascii.ConnectorFunc(func(ctx context.Context, endpoint string) (net.Conn, error) {
		c.mu.Lock()
		c.connects++
		offline := c.offline
		c.mu.Unlock()

		if offline {
			return nil, fmt.Errorf("dial %s: connection refused", endpoint)
		}

		client, server := net.Pipe()
		go c.ServeConn(server)
		return client, nil
	})
}

// Serve принимает TCP-подключения до закрытия listener.
func (c *Controller) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go c.ServeConn(conn)
	}
}

// DropConnections закрывает все активные подключения, имитируя обрыв связи.
func (c *Controller) DropConnections() {
	c.mu.Lock()
	conns := make([]net.Conn, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// ServeConn обслуживает одно подключение построчно.
func (c *Controller) ServeConn(conn net.Conn) {
	c.mu.Lock()
	c.conns[conn] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.conns, conn)
		c.mu.Unlock()
		_ = conn.Close()
	}()

	st := &connState{loggedIn: c.password == "" && c.user == ""}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), gpascii.MaxLineLength)

	for scanner.Scan() {
		reply := c.execute(st, scanner.Text())
		if _, err := io.WriteString(conn, reply+"\n"); err != nil {
			return
		}
	}
}

func (c *Controller) execute(st *connState, line string) string {
	req, err := gpascii.ParseReply(line)
	if err != nil {
		return gpascii.FormatError(gpascii.ErrCodeSyntax, "syntax error", "")
	}
	prefix := fmt.Sprintf("%s%d ", gpascii.SeqPrefix, req.Seq)

	fields := strings.Fields(req.Body)
	if len(fields) > 0 && fields[0] == gpascii.CmdLogin {
		if len(fields) == 3 && fields[1] == c.user && fields[2] == c.password {
			st.loggedIn = true
			return prefix
		}
		return prefix + gpascii.FormatError(gpascii.ErrCodeAccessDenied, "access denied", "")
	}
	if !st.loggedIn {
		return prefix + gpascii.FormatError(gpascii.ErrCodeAccessDenied, "access denied", "")
	}
	if req.Body == gpascii.CmdVersion {
		return prefix + gpascii.CmdVersion + "=" + c.version
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(fields))
	for _, stmt := range fields {
		if name, raw, isSet := strings.Cut(stmt, "="); isSet {
			if msg := c.setLocked(gpascii.Normalize(name), raw); msg != "" {
				return prefix + msg
			}
			continue
		}

		name := gpascii.Normalize(stmt)
		v, ok := c.getLocked(name)
		if !ok {
			return prefix + gpascii.FormatError(gpascii.ErrCodeUnknownVariable, "unknown variable", name)
		}
		out = append(out, name+"="+v.String())
	}
	return prefix + strings.Join(out, " ")
}

func (c *Controller) getLocked(name string) (gpascii.Value, bool) {
	if name == "sys.time" {
		return gpascii.Float(c.clock), true
	}
	v, ok := c.vars[name]
	return v, ok
}

func (c *Controller) setLocked(name, raw string) string {
	_, declared := c.schema.Lookup(name)
	if _, exists := c.vars[name]; !declared && !exists {
		return gpascii.FormatError(gpascii.ErrCodeUnknownVariable, "unknown variable", name)
	}

	v, err := gpascii.ParseValue(raw)
	if err != nil {
		return gpascii.FormatError(gpascii.ErrCodeSyntax, "syntax error", name)
	}

	v, err = c.schema.Validate(name, v)
	if err != nil {
		var verr *gpascii.ValidationError
		if errors.As(err, &verr) && verr.Reason == "read-only" {
			return gpascii.FormatError(gpascii.ErrCodeReadOnly, "read-only", name)
		}
		return gpascii.FormatError(gpascii.ErrCodeOutOfRange, "out of range", name)
	}

	switch name {
	case "fly.start":
		if v.Bool() {
			if msg := c.startScanLocked(); msg != "" {
				return msg
			}
		}
		c.vars[name] = gpascii.Bool(false)
		return ""
	case "fly.abort":
		if v.Bool() {
			c.abortScanLocked()
		}
		c.vars[name] = gpascii.Bool(false)
		return ""
	}

	c.vars[name] = v
	return ""
}

func (c *Controller) startScanLocked() string {
	if c.scan.running {
		return gpascii.FormatError(gpascii.ErrCodeOutOfRange, "scan already running", "fly.start")
	}

	axes := c.armedAxesLocked()
	if len(axes) == 0 {
		return gpascii.FormatError(gpascii.ErrCodeOutOfRange, "no axes armed", "fly.start")
	}

	npoints := c.vars["fly.npoints"].Int64()
	if npoints < 1 {
		npoints = 1
	}

	for name := range c.vars {
		if gpascii.Pattern(name) == "fly.ticktime[]" {
			delete(c.vars, name)
		}
	}

	for _, axis := range axes {
		start := c.vars[motorVar(axis, "flystart")]
		c.vars[motorVar(axis, "actpos")] = start
		c.vars[motorVar(axis, "despos")] = start
		c.vars[motorVar(axis, "inpos")] = gpascii.Bool(false)
	}

	c.scan = scanState{running: true, npoints: npoints, axes: axes}
	c.vars["fly.tick"] = gpascii.Int(0)
	c.vars["fly.fault"] = gpascii.Int(0)
	c.vars["fly.status"] = gpascii.Int(FlyRunning)
	return ""
}

func (c *Controller) abortScanLocked() {
	for _, axis := range c.armedAxesLocked() {
		c.vars[motorVar(axis, "flyarm")] = gpascii.Bool(false)
	}
	for _, axis := range c.scan.axes {
		c.vars[motorVar(axis, "despos")] = c.vars[motorVar(axis, "actpos")]
		c.vars[motorVar(axis, "inpos")] = gpascii.Bool(c.inPositionLocked(axis))
		c.vars[motorVar(axis, "flyarm")] = gpascii.Bool(false)
	}
	c.scan.running = false
	if c.vars["fly.status"].Int64() != FlyFault {
		c.vars["fly.status"] = gpascii.Int(FlyIdle)
	}
}

func (c *Controller) armedAxesLocked() []int {
	var axes []int
	for name, v := range c.vars {
		if gpascii.Pattern(name) != "motor[].flyarm" || !v.Bool() {
			continue
		}
		var axis int
		if _, err := fmt.Sscanf(name, "motor[%d].flyarm", &axis); err == nil {
			axes = append(axes, axis)
		}
	}
	sort.Ints(axes)
	return axes
}

func (c *Controller) inPositionLocked(axis int) bool {
	act := c.vars[motorVar(axis, "actpos")].Float64()
	des := c.vars[motorVar(axis, "despos")].Float64()
	return c.vars[motorVar(axis, "closedloop")].Bool() && math.Abs(act-des) <= c.tolerance
}

func motorVar(axis int, field string) string {
	return fmt.Sprintf("motor[%d].%s", axis, field)
}
