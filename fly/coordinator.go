// Package fly программирует, запускает и сопровождает fly-сканы: оси движутся
// по заданной траектории, а контроллер выдает триггеры с отметками времени.
package fly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/iwtcode/ppmacAdapter/axis"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/models"
	"github.com/sirupsen/logrus"
)

// Значения fly.status на контроллере.
const (
	controllerIdle    = 0
	controllerRunning = 1
	controllerDone    = 2
	controllerFault   = -1
)

const (
	maxPoints = 1_000_000
	// Подряд идущие ошибки опроса, после которых скан считается сорванным.
	maxPollErrors = 5
	// Число отметок времени, читаемых одной командой.
	tickBatch = 32
	// Время на откат записей, когда контекст вызывающего уже отменен.
	cleanupTimeout = 2 * time.Second
)

// DetectorLike - внешнее устройство, которое участвует в скане.
type DetectorLike interface {
	Name() string
	WaitForConnection(ctx context.Context) error
	Stage(ctx context.Context) error
	Unstage(ctx context.Context) error
}

type Option func(*Coordinator)

// WithPollInterval задает период опроса статуса скана. Неположительные значения игнорируются.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithScanTimeout ограничивает время выполнения скана. Ноль - без ограничения.
func WithScanTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.scanTimeout = d }
}

// WithEventHandler подписывает обработчик на события скана.
func WithEventHandler(h EventHandler) Option {
	return func(c *Coordinator) { c.handler = h }
}

func WithDetectors(detectors ...DetectorLike) Option {
	return func(c *Coordinator) { c.detectors = append(c.detectors, detectors...) }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

type armedAxis struct {
	name   string
	number int
	end    float64
}

// Coordinator ведет один скан: idle -> programmed -> running -> complete/aborted/error.
type Coordinator struct {
	caller      gpascii.Caller
	tracker     *axis.Tracker
	interval    time.Duration
	scanTimeout time.Duration
	handler     EventHandler
	detectors   []DetectorLike
	logger      logrus.FieldLogger

	// opMu упорядочивает Program, Start и Abort.
	opMu sync.Mutex

	mu       sync.Mutex
	status   models.ScanStatus
	traj     models.Trajectory
	axes     []armedAxis
	points   []models.ScanPoint
	err      error
	lastTick int64
	started  time.Time
	cancel   context.CancelFunc
	loopDone chan struct{}
	events   *dispatcher
	done     chan struct{}
}

// NewCoordinator создает координатор в состоянии idle.
func NewCoordinator(caller gpascii.Caller, tracker *axis.Tracker, opts ...Option) *Coordinator {
	c := &Coordinator{
		caller:   caller,
		tracker:  tracker,
		interval: 20 * time.Millisecond,
		status:   models.ScanIdle,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.logger = l
	}
	return c
}

// Status возвращает текущее состояние скана.
func (c *Coordinator) Status() models.ScanStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Points возвращает копию накопленных точек.
func (c *Coordinator) Points() []models.ScanPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ScanPoint(nil), c.points...)
}

// Result возвращает снимок итога. До завершения скана Status не конечный.
func (c *Coordinator) Result() models.ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultLocked()
}

func (c *Coordinator) resultLocked() models.ScanResult {
	res := models.ScanResult{
		Status: c.status,
		Points: append([]models.ScanPoint(nil), c.points...),
		Err:    c.err,
	}
	if c.err != nil {
		res.Error = c.err.Error()
	}
	return res
}

// Trajectory возвращает запрограммированную траекторию.
func (c *Coordinator) Trajectory() models.Trajectory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traj
}

// Program проверяет готовность и записывает параметры траектории в контроллер.
// При NotReadyError и ошибках проверки ничего не записывается и состояние не меняется.
func (c *Coordinator) Program(ctx context.Context, traj models.Trajectory) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if s := c.Status(); s != models.ScanIdle {
		return fmt.Errorf("%w: cannot program from '%s'", ErrInvalidState, s)
	}

	if err := validate(traj); err != nil {
		return err
	}

	axes, err := c.checkReady(ctx, traj)
	if err != nil {
		return err
	}

	var armed []armedAxis
	for i, mv := range traj.Moves {
		ax := axes[i]
		writes := []struct {
			field string
			value gpascii.Value
		}{
			{"flystart", gpascii.Float(mv.Start)},
			{"flyend", gpascii.Float(mv.End)},
			{"flyvel", gpascii.Float(mv.Velocity)},
			{"flyaccel", gpascii.Float(mv.Acceleration)},
			{"flyarm", gpascii.Bool(true)},
		}
		for _, w := range writes {
			if err := c.caller.SetVariable(ctx, motorVar(ax.number, w.field), w.value); err != nil {
				c.disarm(ctx, armed)
				return fmt.Errorf("program axis '%s': %w", ax.name, err)
			}
		}
		armed = append(armed, ax)
	}

	if err := c.caller.SetVariable(ctx, "fly.npoints", gpascii.Int(traj.Points)); err != nil {
		c.disarm(ctx, armed)
		return fmt.Errorf("program point count: %w", err)
	}

	c.mu.Lock()
	c.traj = traj
	c.axes = axes
	c.status = models.ScanProgrammed
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"axes": len(axes), "points": traj.Points}).Info("Fly scan programmed")
	return nil
}

func validate(traj models.Trajectory) error {
	if len(traj.Moves) == 0 {
		return &gpascii.ValidationError{Name: "trajectory", Reason: "no moves"}
	}
	if traj.Points < 1 || traj.Points > maxPoints {
		return &gpascii.ValidationError{
			Name:   "fly.npoints",
			Value:  fmt.Sprint(traj.Points),
			Reason: fmt.Sprintf("must be in [1, %d]", maxPoints),
		}
	}

	seen := make(map[string]bool, len(traj.Moves))
	for _, mv := range traj.Moves {
		switch {
		case mv.Axis == "":
			return &gpascii.ValidationError{Name: "axis", Reason: "empty axis name"}
		case seen[mv.Axis]:
			return &gpascii.ValidationError{Name: mv.Axis, Reason: "axis appears twice"}
		case !finite(mv.Start) || !finite(mv.End):
			return &gpascii.ValidationError{Name: mv.Axis, Reason: "start and end must be finite"}
		case !(mv.Velocity > 0) || !finite(mv.Velocity):
			return &gpascii.ValidationError{Name: mv.Axis, Value: fmt.Sprint(mv.Velocity), Reason: "velocity must be positive"}
		case !(mv.Acceleration > 0) || !finite(mv.Acceleration):
			return &gpascii.ValidationError{Name: mv.Axis, Value: fmt.Sprint(mv.Acceleration), Reason: "acceleration must be positive"}
		}
		seen[mv.Axis] = true
	}
	return nil
}

// checkReady собирает все причины неготовности. Ошибки транспорта возвращаются как есть.
func (c *Coordinator) checkReady(ctx context.Context, traj models.Trajectory) ([]armedAxis, error) {
	var reasons []string
	axes := make([]armedAxis, 0, len(traj.Moves))

	for _, mv := range traj.Moves {
		number, ok := c.tracker.Lookup(mv.Axis)
		if !ok {
			reasons = append(reasons, fmt.Sprintf("axis '%s' is not registered", mv.Axis))
			continue
		}
		st, err := c.tracker.Status(ctx, mv.Axis)
		if err != nil {
			return nil, err
		}
		if !st.Ready() {
			reasons = append(reasons, fmt.Sprintf("axis '%s' is not in position", mv.Axis))
		}
		axes = append(axes, armedAxis{name: mv.Axis, number: number, end: mv.End})
	}

	for _, d := range c.detectors {
		if err := d.WaitForConnection(ctx); err != nil {
			reasons = append(reasons, fmt.Sprintf("detector '%s' is not connected: %v", d.Name(), err))
		}
	}

	if len(reasons) > 0 {
		return nil, &NotReadyError{Reasons: reasons}
	}
	return axes, nil
}

// disarm снимает flyarm с осей. Ошибки только логируются.
func (c *Coordinator) disarm(ctx context.Context, axes []armedAxis) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, ax := range axes {
		if err := c.caller.SetVariable(ctx, motorVar(ax.number, "flyarm"), gpascii.Bool(false)); err != nil {
			c.logger.WithField("axis", ax.name).WithError(err).Warn("Failed to disarm axis")
		}
	}
}

// Start запускает запрограммированный скан. Все оси стартуют одной командой
// fly.start=1, поэтому рассинхронизация старта между осями нулевая.
func (c *Coordinator) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if s := c.Status(); s != models.ScanProgrammed {
		return fmt.Errorf("%w: cannot start from '%s'", ErrInvalidState, s)
	}

	var staged []DetectorLike
	for _, d := range c.detectors {
		if err := d.Stage(ctx); err != nil {
			c.unstage(ctx, staged)
			return fmt.Errorf("stage detector '%s': %w", d.Name(), err)
		}
		staged = append(staged, d)
	}

	if err := c.caller.SetVariable(ctx, "fly.start", gpascii.Bool(true)); err != nil {
		c.unstage(ctx, staged)
		return fmt.Errorf("start scan: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.status = models.ScanRunning
	c.started = time.Now()
	c.cancel = cancel
	c.loopDone = make(chan struct{})
	if c.handler != nil {
		c.events = newDispatcher(c.handler)
	}
	c.emitLocked(Event{Kind: EventStatus, Status: models.ScanRunning})
	c.mu.Unlock()

	c.logger.Info("Fly scan started")
	go c.run(loopCtx)
	return nil
}

func (c *Coordinator) unstage(ctx context.Context, detectors []DetectorLike) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, d := range detectors {
		if err := d.Unstage(ctx); err != nil {
			c.logger.WithField("detector", d.Name()).WithError(err).Warn("Failed to unstage detector")
		}
	}
}

func (c *Coordinator) emitLocked(e Event) {
	if c.events != nil {
		c.events.push(e)
	}
}

// run опрашивает контроллер до конечного состояния или отмены. Отмена проверяется
// между опросами: начатый запрос завершается, его результат отбрасывается.
func (c *Coordinator) run(ctx context.Context) {
	defer close(c.loopDone)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if c.scanTimeout > 0 {
		timer := time.NewTimer(c.scanTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			c.logger.Warn("Fly scan timed out, aborting")
			c.writeAbort(ctx)
			c.finish(models.ScanError, ErrScanTimeout)
			return
		case <-ticker.C:
		}

		terminal, err := c.poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			c.logger.WithField("failures", failures).WithError(err).Warn("Fly scan poll failed")
			if failures >= maxPollErrors {
				c.finish(models.ScanError, fmt.Errorf("poll scan status: %w", err))
				return
			}
			continue
		}
		failures = 0
		if terminal {
			return
		}
	}
}

// poll выполняет один цикл опроса и сообщает, достигнут ли конечный статус.
func (c *Coordinator) poll(ctx context.Context) (bool, error) {
	c.mu.Lock()
	axes := c.axes
	lastTick := c.lastTick
	npoints := c.traj.Points
	c.mu.Unlock()

	names := []string{"fly.status", "fly.tick"}
	for _, ax := range axes {
		names = append(names, motorVar(ax.number, "actpos"))
	}
	values, err := c.caller.GetVariables(ctx, names...)
	if err != nil {
		return false, err
	}
	if len(values) != len(names) {
		return false, &gpascii.ProtocolError{Message: fmt.Sprintf("expected %d values, got %d", len(names), len(values))}
	}

	status := values[0].Int64()
	tick := values[1].Int64()
	observed := time.Now()

	if tick < 0 || tick > npoints {
		return false, &gpascii.ProtocolError{Message: fmt.Sprintf("fly.tick %d outside of [0, %d]", tick, npoints)}
	}
	if tick > lastTick {
		times, err := c.tickTimes(ctx, lastTick+1, tick)
		if err != nil {
			return false, err
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		positions := make(map[string]float64, len(axes))
		for i, ax := range axes {
			positions[ax.name] = values[2+i].Float64()
		}

		c.mu.Lock()
		for k := lastTick + 1; k <= tick; k++ {
			pt := models.ScanPoint{Index: k, ControllerTime: times[k-lastTick-1], Observed: observed}
			// Положения осей измерены в момент опроса и относятся к последнему тику.
			if k == tick {
				pt.Positions = positions
			}
			c.points = append(c.points, pt)
			c.emitLocked(Event{Kind: EventPoint, Point: pt})
		}
		c.lastTick = tick
		c.mu.Unlock()
	}

	switch status {
	case controllerFault:
		code := int64(0)
		if v, err := c.caller.GetVariable(ctx, "fly.fault"); err == nil {
			code = v.Int64()
		}
		c.finish(models.ScanError, &FaultError{Code: code})
		return true, nil
	case controllerDone:
		settled, err := c.settled(ctx, axes)
		if err != nil {
			return false, err
		}
		if settled {
			c.finish(models.ScanComplete, nil)
			return true, nil
		}
	case controllerIdle, controllerRunning:
	default:
		c.logger.WithField("status", status).Warn("Unexpected fly.status value")
	}
	return false, nil
}

func (c *Coordinator) tickTimes(ctx context.Context, from, to int64) ([]float64, error) {
	times := make([]float64, 0, to-from+1)
	for start := from; start <= to; start += tickBatch {
		end := min(start+tickBatch-1, to)
		names := make([]string, 0, end-start+1)
		for k := start; k <= end; k++ {
			names = append(names, fmt.Sprintf("fly.ticktime[%d]", k))
		}
		values, err := c.caller.GetVariables(ctx, names...)
		if err != nil {
			return nil, fmt.Errorf("read tick times %d..%d: %w", start, end, err)
		}
		for _, v := range values {
			times = append(times, v.Float64())
		}
	}
	return times, nil
}

// settled проверяет, что все оси в позиции и в пределах допуска от конечной точки.
func (c *Coordinator) settled(ctx context.Context, axes []armedAxis) (bool, error) {
	tol := c.tracker.Tolerance()
	for _, ax := range axes {
		st, err := c.tracker.StatusByNumber(ctx, ax.number)
		if err != nil {
			return false, err
		}
		if !st.Ready() || math.Abs(st.ActualPosition-ax.end) > tol {
			return false, nil
		}
	}
	return true, nil
}

func (c *Coordinator) writeAbort(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := c.caller.SetVariable(ctx, "fly.abort", gpascii.Bool(true)); err != nil {
		c.logger.WithError(err).Warn("Failed to write fly.abort")
	}
}

// finish переводит скан в конечное состояние один раз.
func (c *Coordinator) finish(status models.ScanStatus, err error) {
	c.mu.Lock()
	if c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.err = err
	res := c.resultLocked()
	c.emitLocked(Event{Kind: EventResult, Status: status, Result: res})
	events := c.events
	c.mu.Unlock()

	c.unstage(context.Background(), c.detectors)
	if events != nil {
		events.close()
	}
	close(c.done)

	entry := c.logger.WithFields(logrus.Fields{"status": status, "points": len(res.Points)})
	if err != nil {
		entry.WithError(err).Warn("Fly scan finished with error")
		return
	}
	entry.Info("Fly scan finished")
}

// Abort останавливает скан из состояний programmed и running. Повторный вызов
// и вызов после завершения ничего не делают. Состояние aborted ошибкой не считается.
func (c *Coordinator) Abort(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	status := c.status
	cancel := c.cancel
	loopDone := c.loopDone
	axes := c.axes
	c.mu.Unlock()

	switch {
	case status.Terminal():
		return nil
	case status == models.ScanIdle:
		return fmt.Errorf("%w: nothing to abort", ErrInvalidState)
	}

	if status == models.ScanRunning {
		cancel()
		<-loopDone
		if c.Status().Terminal() {
			return nil
		}
	}

	err := c.caller.SetVariable(ctx, "fly.abort", gpascii.Bool(true))
	if err != nil {
		err = fmt.Errorf("abort scan: %w", err)
	}
	c.disarm(ctx, axes)

	if status == models.ScanProgrammed {
		// Детекторы подготавливаются только при старте.
		c.mu.Lock()
		c.status = models.ScanAborted
		c.mu.Unlock()
		close(c.done)
		c.logger.Info("Programmed fly scan aborted")
		return err
	}

	c.finish(models.ScanAborted, nil)
	return err
}

// Wait блокируется до конечного состояния и доставки всех событий обработчику.
func (c *Coordinator) Wait(ctx context.Context) (models.ScanResult, error) {
	if c.Status() == models.ScanIdle {
		return models.ScanResult{}, fmt.Errorf("%w: scan is not programmed", ErrInvalidState)
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		return models.ScanResult{}, ctx.Err()
	}

	c.mu.Lock()
	events := c.events
	c.mu.Unlock()
	if events != nil {
		select {
		case <-events.done:
		case <-ctx.Done():
			return models.ScanResult{}, ctx.Err()
		}
	}

	return c.Result(), nil
}

// Elapsed возвращает время с момента старта скана.
func (c *Coordinator) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() {
		return 0
	}
	return time.Since(c.started)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func motorVar(axis int, field string) string {
	return fmt.Sprintf("motor[%d].%s", axis, field)
}

// IsFault сообщает, что скан сорван аварией контроллера.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
