package gpascii

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnState - состояние соединения, которым владеет Manager.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type ManagerOption func(*Manager)

// WithRetries задает число попыток подключения до ConnectionError.
func WithRetries(n int) ManagerOption {
	return func(m *Manager) {
		if n < 1 {
			n = 1
		}
		m.retries = n
	}
}

// WithBackoff задает начальную и максимальную паузу между попытками.
func WithBackoff(base, max time.Duration) ManagerOption {
	return func(m *Manager) {
		m.backoff = base
		m.maxBackoff = max
	}
}

func WithSessionOptions(opts ...SessionOption) ManagerOption {
	return func(m *Manager) { m.sessionOpts = append(m.sessionOpts, opts...) }
}

func WithManagerLogger(logger logrus.FieldLogger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// Manager - единственный владелец соединения с контроллером.
// Остальные компоненты получают доступ через интерфейс Caller и не закрывают соединение сами.
type Manager struct {
	endpoint    string
	connector   Connector
	retries     int
	backoff     time.Duration
	maxBackoff  time.Duration
	sessionOpts []SessionOption
	logger      logrus.FieldLogger
	store       *Store

	connectMu sync.Mutex

	mu      sync.Mutex
	session *Session
	state   ConnState
	closed  bool
}

var _ Caller = (*Manager)(nil)

// NewManager создает менеджер. Подключение выполняется лениво при первом Connect.
func NewManager(endpoint string, connector Connector, opts ...ManagerOption) *Manager {
	m := &Manager{
		endpoint:   endpoint,
		connector:  connector,
		retries:    3,
		backoff:    200 * time.Millisecond,
		maxBackoff: 5 * time.Second,
		store:      NewStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		m.logger = l
	}
	return m
}

// Connect возвращает живую сессию, если она есть, иначе подключается заново
// с ограниченным числом попыток и экспоненциальной паузой.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.session != nil && m.session.Connected() {
		s := m.session
		m.mu.Unlock()
		return s, nil
	}
	stale := m.session
	m.session = nil
	m.state = StateConnecting
	m.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	opts := append(append([]SessionOption{}, m.sessionOpts...), WithStore(m.store), WithLogger(m.logger))

	var lastErr error
	for attempt := 1; attempt <= m.retries; attempt++ {
		session := NewSession(m.connector, opts...)
		err := session.Connect(ctx, m.endpoint)
		if err == nil {
			m.mu.Lock()
			if m.closed {
				m.mu.Unlock()
				_ = session.Close()
				return nil, ErrClosed
			}
			m.session = session
			m.state = StateConnected
			m.mu.Unlock()
			return session, nil
		}

		lastErr = err
		m.logger.WithFields(logrus.Fields{
			"endpoint": m.endpoint,
			"attempt":  attempt,
			"retries":  m.retries,
		}).WithError(err).Warn("Connection attempt failed")

		if attempt == m.retries {
			break
		}

		timer := time.NewTimer(m.delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			m.setState(StateFailed)
			return nil, NewConnectionError(m.endpoint, "connect cancelled", ctx.Err())
		}
	}

	m.setState(StateFailed)
	return nil, NewConnectionError(m.endpoint, fmt.Sprintf("giving up after %d attempts", m.retries), lastErr)
}

func (m *Manager) delay(attempt int) time.Duration {
	d := m.backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if m.maxBackoff > 0 && d >= m.maxBackoff {
			return m.maxBackoff
		}
	}
	return d
}

func (m *Manager) setState(state ConnState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

// Do выполняет fn с живой сессией. Если соединение оборвалось во время вызова,
// менеджер переподключается и повторяет fn один раз.
func (m *Manager) Do(ctx context.Context, fn func(s *Session) error) error {
	s, err := m.Connect(ctx)
	if err != nil {
		return err
	}

	err = fn(s)
	if err == nil || !IsConnectionError(err) || s.Connected() {
		return err
	}

	m.logger.WithField("endpoint", m.endpoint).WithError(err).Warn("Connection lost, reconnecting")
	s, cerr := m.Connect(ctx)
	if cerr != nil {
		return cerr
	}
	return fn(s)
}

func (m *Manager) GetVariable(ctx context.Context, name string) (Value, error) {
	var v Value
	err := m.Do(ctx, func(s *Session) error {
		var err error
		v, err = s.GetVariable(ctx, name)
		return err
	})
	return v, err
}

func (m *Manager) GetVariables(ctx context.Context, names ...string) ([]Value, error) {
	var values []Value
	err := m.Do(ctx, func(s *Session) error {
		var err error
		values, err = s.GetVariables(ctx, names...)
		return err
	})
	return values, err
}

func (m *Manager) SetVariable(ctx context.Context, name string, v Value) error {
	return m.Do(ctx, func(s *Session) error {
		return s.SetVariable(ctx, name, v)
	})
}

// State возвращает текущее состояние соединения.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConnected && (m.session == nil || !m.session.Connected()) {
		return StateDisconnected
	}
	return m.state
}

func (m *Manager) Endpoint() string { return m.endpoint }

// Store возвращает зеркало переменных, общее для всех сессий менеджера.
func (m *Manager) Store() *Store { return m.store }

// Close закрывает соединение. После Close менеджер не подключается повторно.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	s := m.session
	m.session = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if s != nil {
		return s.Close()
	}
	return nil
}
