package axis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/models"
	"github.com/sirupsen/logrus"
)

// ErrUnknownAxis - имя оси не зарегистрировано.
var ErrUnknownAxis = errors.New("axis not registered")

// DuplicateAxisError - номер оси уже привязан к другому имени или имя к другой оси.
type DuplicateAxisError struct {
	Name     string
	Axis     int
	Existing string
}

func (e *DuplicateAxisError) Error() string {
	return fmt.Sprintf("axis %d already registered as '%s', cannot bind '%s'", e.Axis, e.Existing, e.Name)
}

// PositionerLike - логическое устройство, привязанное к одной оси контроллера.
type PositionerLike interface {
	Name() string
}

type Option func(*Tracker)

// WithPollInterval задает интервал опроса в WaitUntilInPosition и Watch.
// Неположительные значения игнорируются.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTolerance задает допуск положения в конце траектории. Неположительные значения игнорируются.
func WithTolerance(tol float64) Option {
	return func(t *Tracker) {
		if tol > 0 {
			t.tolerance = tol
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// Tracker - проекция переменных motor[N].* на именованные оси.
type Tracker struct {
	caller    gpascii.Caller
	interval  time.Duration
	tolerance float64
	logger    logrus.FieldLogger

	mu          sync.RWMutex
	byName      map[string]int
	byNumber    map[int]string
	positioners map[string]PositionerLike
}

func NewTracker(caller gpascii.Caller, opts ...Option) *Tracker {
	t := &Tracker{
		caller:      caller,
		interval:    50 * time.Millisecond,
		tolerance:   1e-3,
		byName:      make(map[string]int),
		byNumber:    make(map[int]string),
		positioners: make(map[string]PositionerLike),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		t.logger = l
	}
	return t
}

// Register привязывает имя к номеру оси. Повторная регистрация той же пары ничего не меняет.
func (t *Tracker) Register(name string, axis int) error {
	if name == "" {
		return fmt.Errorf("axis name is empty")
	}
	if axis < 0 {
		return fmt.Errorf("invalid axis number %d", axis)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byNumber[axis]; ok {
		if existing == name {
			return nil
		}
		return &DuplicateAxisError{Name: name, Axis: axis, Existing: existing}
	}
	if bound, ok := t.byName[name]; ok {
		return &DuplicateAxisError{Name: name, Axis: bound, Existing: name}
	}

	t.byName[name] = axis
	t.byNumber[axis] = name
	t.logger.WithFields(logrus.Fields{"axis": axis, "name": name}).Debug("Axis registered")
	return nil
}

// RegisterPositioner регистрирует устройство под его именем.
func (t *Tracker) RegisterPositioner(p PositionerLike, axis int) error {
	if err := t.Register(p.Name(), axis); err != nil {
		return err
	}
	t.mu.Lock()
	t.positioners[p.Name()] = p
	t.mu.Unlock()
	return nil
}

// Lookup возвращает номер оси по имени.
func (t *Tracker) Lookup(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	axis, ok := t.byName[name]
	return axis, ok
}

// Names возвращает зарегистрированные имена в алфавитном порядке.
func (t *Tracker) Names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	t.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Positioners возвращает копию карты зарегистрированных устройств.
func (t *Tracker) Positioners() map[string]PositionerLike {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]PositionerLike, len(t.positioners))
	for name, p := range t.positioners {
		out[name] = p
	}
	return out
}

func (t *Tracker) Tolerance() float64          { return t.tolerance }
func (t *Tracker) PollInterval() time.Duration { return t.interval }

// Status читает состояние оси по имени.
func (t *Tracker) Status(ctx context.Context, name string) (models.AxisStatus, error) {
	axis, ok := t.Lookup(name)
	if !ok {
		return models.AxisStatus{}, fmt.Errorf("%w: '%s'", ErrUnknownAxis, name)
	}
	return t.read(ctx, name, axis)
}

// StatusByNumber читает состояние оси по номеру.
func (t *Tracker) StatusByNumber(ctx context.Context, axis int) (models.AxisStatus, error) {
	t.mu.RLock()
	name := t.byNumber[axis]
	t.mu.RUnlock()
	return t.read(ctx, name, axis)
}

// read читает четыре переменные оси. Если вызывающая сторона не поддерживает батчинг,
// чтения выполняются по очереди и согласованы только в пределах интервала опроса.
func (t *Tracker) read(ctx context.Context, name string, axis int) (models.AxisStatus, error) {
	values, err := t.caller.GetVariables(ctx,
		motorVar(axis, "homepos"),
		motorVar(axis, "actpos"),
		motorVar(axis, "inpos"),
		motorVar(axis, "closedloop"),
	)
	if err != nil {
		return models.AxisStatus{}, fmt.Errorf("read status of axis %d: %w", axis, err)
	}
	if len(values) != 4 {
		return models.AxisStatus{}, fmt.Errorf("read status of axis %d: expected 4 values, got %d", axis, len(values))
	}

	return models.AxisStatus{
		Name:           name,
		Number:         axis,
		HomePosition:   values[0].Float64(),
		ActualPosition: values[1].Float64(),
		InPosition:     values[2].Bool(),
		ClosedLoop:     values[3].Bool(),
		Timestamp:      time.Now(),
	}, nil
}

// WaitUntilInPosition опрашивает ось с фиксированным интервалом и возвращает true,
// когда два опроса подряд показали in_position и closed_loop. По истечении timeout
// возвращает false и не блокируется дольше него.
func (t *Tracker) WaitUntilInPosition(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	if _, ok := t.Lookup(name); !ok {
		return false, fmt.Errorf("%w: '%s'", ErrUnknownAxis, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	consecutive := 0
	for {
		status, err := t.Status(ctx, name)
		switch {
		case err == nil:
			if status.Ready() {
				consecutive++
				if consecutive >= 2 {
					return true, nil
				}
			} else {
				consecutive = 0
			}
		case errors.Is(err, gpascii.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
			return false, nil
		default:
			return false, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return false, ctx.Err()
			}
			return false, nil
		case <-ticker.C:
		}
	}
}

// StatusUpdate - результат одного опроса в Watch.
type StatusUpdate struct {
	Status models.AxisStatus
	Err    error
}

// Watch опрашивает ось и отправляет обновление при каждом изменении состояния.
// Канал закрывается при отмене контекста.
func (t *Tracker) Watch(ctx context.Context, name string) <-chan StatusUpdate {
	updates := make(chan StatusUpdate)

	go func() {
		defer close(updates)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		var last *models.AxisStatus
		for {
			status, err := t.Status(ctx, name)
			if err != nil || last == nil || changed(*last, status) {
				if err == nil {
					last = &status
				}
				select {
				case updates <- StatusUpdate{Status: status, Err: err}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return updates
}

func changed(a, b models.AxisStatus) bool {
	return a.HomePosition != b.HomePosition ||
		a.ActualPosition != b.ActualPosition ||
		a.InPosition != b.InPosition ||
		a.ClosedLoop != b.ClosedLoop
}

func motorVar(axis int, field string) string {
	return fmt.Sprintf("motor[%d].%s", axis, field)
}
