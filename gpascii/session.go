package gpascii

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionOption настраивает Session.
type SessionOption func(*Session)

// WithSchema задает объявления переменных для проверки записи и приведения типов.
func WithSchema(schema *Schema) SessionOption {
	return func(s *Session) { s.schema = schema }
}

// WithStore задает зеркало переменных, которое обновляется при каждом чтении и записи.
func WithStore(store *Store) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithBatching включает чтение нескольких переменных одной командой.
func WithBatching(enabled bool) SessionOption {
	return func(s *Session) { s.batch = enabled }
}

// WithPipelining разрешает до n одновременных запросов на соединение.
// Ответы сопоставляются по номеру запроса.
func WithPipelining(n int) SessionOption {
	return func(s *Session) {
		if n < 1 {
			n = 1
		}
		s.slots = make(chan struct{}, n)
	}
}

func WithCommandTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithCredentials включает команду login перед рукопожатием.
func WithCredentials(user, password string) SessionOption {
	return func(s *Session) {
		s.user = user
		s.password = password
	}
}

func WithLogger(logger logrus.FieldLogger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

type replyResult struct {
	body string
	err  error
}

// Session - клиент текстового протокола gpascii поверх одного соединения.
// Запросы сериализуются: одновременно выполняется не больше запросов,
// чем разрешено WithPipelining (по умолчанию один).
type Session struct {
	connector Connector
	schema    *Schema
	store     *Store
	logger    logrus.FieldLogger
	timeout   time.Duration
	batch     bool
	user      string
	password  string

	connectMu sync.Mutex
	writeMu   sync.Mutex
	slots     chan struct{}

	mu         sync.Mutex
	conn       net.Conn
	endpoint   string
	connected  bool
	version    string
	pending    map[uint64]chan replyResult
	readerDone chan struct{}

	seq atomic.Uint64
}

// NewSession создает неподключенную сессию.
func NewSession(connector Connector, opts ...SessionOption) *Session {
	s := &Session{
		connector: connector,
		schema:    DefaultSchema(),
		store:     NewStore(),
		timeout:   CommandTimeout,
		batch:     true,
		slots:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}
	return s
}

// Connect подключается к контроллеру и выполняет рукопожатие.
// Повторный вызов для того же адреса ничего не делает.
func (s *Session) Connect(ctx context.Context, endpoint string) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.connected {
		current := s.endpoint
		s.mu.Unlock()
		if current == endpoint {
			return nil
		}
		return NewConnectionError(endpoint, "session already connected to "+current, nil)
	}
	s.mu.Unlock()

	conn, err := s.connector.Connect(ctx, endpoint)
	if err != nil {
		return NewConnectionError(endpoint, "failed to connect", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.endpoint = endpoint
	s.connected = true
	s.pending = make(map[uint64]chan replyResult)
	s.readerDone = done
	s.mu.Unlock()

	go s.readerLoop(conn, done)

	if s.user != "" || s.password != "" {
		if _, err := s.roundTrip(ctx, CmdLogin+" "+s.user+" "+s.password); err != nil {
			s.Close()
			return NewConnectionError(endpoint, "login rejected", err)
		}
	}

	body, err := s.roundTrip(ctx, CmdVersion)
	if err != nil {
		s.Close()
		return NewConnectionError(endpoint, "handshake failed", err)
	}
	name, version, ok := strings.Cut(body, "=")
	if !ok || Normalize(name) != CmdVersion {
		s.Close()
		return NewConnectionError(endpoint, "handshake failed", &ProtocolError{Line: body, Message: "expected ver=<version>"})
	}

	s.mu.Lock()
	s.version = version
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"endpoint": endpoint, "version": version}).Info("Connected to controller")
	return nil
}

// Close закрывает соединение и завершает ожидающие запросы с ошибкой.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	done := s.readerDone
	s.connected = false
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// Version возвращает версию, сообщенную контроллером при рукопожатии.
func (s *Session) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) Store() *Store   { return s.store }
func (s *Session) Schema() *Schema { return s.schema }

// GetVariable читает одну переменную с контроллера.
func (s *Session) GetVariable(ctx context.Context, name string) (Value, error) {
	values, err := s.GetVariables(ctx, name)
	if err != nil {
		return Value{}, err
	}
	return values[0], nil
}

// GetVariables читает несколько переменных. При включенном батчинге - одной командой,
// иначе последовательно; атомарность между отдельными чтениями не гарантируется.
func (s *Session) GetVariables(ctx context.Context, names ...string) ([]Value, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if s.batch || len(names) == 1 {
		return s.read(ctx, names)
	}

	out := make([]Value, 0, len(names))
	for _, name := range names {
		values, err := s.read(ctx, []string{name})
		if err != nil {
			return nil, err
		}
		out = append(out, values[0])
	}
	return out, nil
}

func (s *Session) read(ctx context.Context, names []string) ([]Value, error) {
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = Normalize(name)
	}

	body, err := s.roundTrip(ctx, normalized...)
	if err != nil {
		var ctrlErr *ControllerError
		if errors.As(err, &ctrlErr) {
			name := ""
			if len(normalized) == 1 {
				name = normalized[0]
			}
			return nil, ctrlErr.classify(name)
		}
		return nil, err
	}

	assignments, err := ParseAssignments(body)
	if err != nil {
		return nil, err
	}
	if len(assignments) != len(normalized) {
		return nil, &ProtocolError{Line: body, Message: "reply does not match request"}
	}

	values := make([]Value, len(assignments))
	for i, a := range assignments {
		if a.Name != normalized[i] {
			return nil, &ProtocolError{Line: body, Message: "unexpected variable " + a.Name}
		}
		v := a.Value
		if d, ok := s.schema.Lookup(a.Name); ok {
			v = v.Coerce(d.Kind)
		}
		s.store.Put(a.Name, v)
		values[i] = v
	}
	return values, nil
}

// SetVariable записывает значение. Тип и диапазон проверяются по схеме до отправки.
func (s *Session) SetVariable(ctx context.Context, name string, v Value) error {
	v, err := s.schema.Validate(name, v)
	if err != nil {
		return err
	}

	body, err := s.roundTrip(ctx, FormatSet(name, v))
	if err != nil {
		var ctrlErr *ControllerError
		if errors.As(err, &ctrlErr) {
			return ctrlErr.classify(Normalize(name))
		}
		return err
	}
	if body != "" {
		return &ProtocolError{Line: body, Message: "unexpected reply to write"}
	}

	s.store.Put(name, v)
	return nil
}

// roundTrip отправляет одну строку и ждет ответ с тем же номером.
func (s *Session) roundTrip(ctx context.Context, statements ...string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctxError(ctx)
	}
	defer func() { <-s.slots }()

	s.mu.Lock()
	if !s.connected {
		endpoint := s.endpoint
		s.mu.Unlock()
		return "", NewConnectionError(endpoint, "send failed", ErrNotConnected)
	}
	conn := s.conn
	endpoint := s.endpoint
	seq := s.seq.Add(1)
	replyCh := make(chan replyResult, 1)
	s.pending[seq] = replyCh
	s.mu.Unlock()

	line := FormatRequest(seq, statements...)

	s.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	n, err := io.WriteString(conn, line)
	_ = conn.SetWriteDeadline(time.Time{})
	s.writeMu.Unlock()

	if err != nil {
		s.forget(seq)
		var netErr net.Error
		if n == 0 && errors.As(err, &netErr) && netErr.Timeout() {
			// Ничего не отправлено, соединение остается рабочим.
			return "", ErrTimeout
		}
		// Строка ушла частично, соединение больше не пригодно.
		_ = conn.Close()
		return "", NewConnectionError(endpoint, "failed to send command", err)
	}

	s.logger.WithField("seq", seq).Debugf("-> %s", strings.TrimSpace(line))

	select {
	case res := <-replyCh:
		return res.body, res.err
	case <-ctx.Done():
		s.forget(seq)
		return "", ctxError(ctx)
	}
}

func (s *Session) forget(seq uint64) {
	s.mu.Lock()
	delete(s.pending, seq)
	s.mu.Unlock()
}

func (s *Session) readerLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), MaxLineLength)

	for scanner.Scan() {
		s.processLine(scanner.Text())
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.handleDisconnect(conn, err)
}

func (s *Session) processLine(line string) {
	reply, err := ParseReply(line)
	if err != nil {
		// Без номера ответ можно отдать только единственному ожидающему запросу.
		s.mu.Lock()
		var only chan replyResult
		if len(s.pending) == 1 {
			for seq, ch := range s.pending {
				only = ch
				delete(s.pending, seq)
			}
		}
		s.mu.Unlock()

		if only != nil {
			only <- replyResult{err: err}
			return
		}
		s.logger.WithError(err).Warn("Dropping malformed reply")
		return
	}

	s.mu.Lock()
	replyCh, ok := s.pending[reply.Seq]
	delete(s.pending, reply.Seq)
	s.mu.Unlock()

	if !ok {
		s.logger.WithField("seq", reply.Seq).Debug("Discarding reply for abandoned request")
		return
	}

	s.logger.WithField("seq", reply.Seq).Debugf("<- %s", reply.Body)

	if ctrlErr, isErr := ParseControllerError(reply.Body); isErr {
		replyCh <- replyResult{err: ctrlErr}
		return
	}
	replyCh <- replyResult{body: reply.Body}
}

func (s *Session) handleDisconnect(conn net.Conn, cause error) {
	s.mu.Lock()
	endpoint := s.endpoint
	wasCurrent := s.conn == conn || s.conn == nil
	if s.conn == conn {
		s.connected = false
		s.conn = nil
	}
	var pending map[uint64]chan replyResult
	if wasCurrent {
		pending = s.pending
		s.pending = make(map[uint64]chan replyResult)
	}
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- replyResult{err: NewConnectionError(endpoint, "connection lost", cause)}
	}
	_ = conn.Close()

	if wasCurrent {
		s.logger.WithField("endpoint", endpoint).WithError(cause).Debug("Controller connection closed")
	}
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return ErrTimeout
}
