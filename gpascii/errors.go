package gpascii

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout - команда не получила ответа за отведенное время.
	ErrTimeout = errors.New("command timed out")

	// ErrNotConnected - операция без активного соединения.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed - менеджер соединений закрыт.
	ErrClosed = errors.New("connection manager closed")
)

// Коды ошибок контроллера в ответах вида "error #<code>: <message>".
const (
	ErrCodeSyntax          = 1
	ErrCodeAccessDenied    = 3
	ErrCodeUnknownVariable = 20
	ErrCodeReadOnly        = 21
	ErrCodeOutOfRange      = 22
)

// ConnectionError - транспорт недоступен, соединение разорвано или вход отклонен.
type ConnectionError struct {
	Endpoint string
	Message  string
	Err      error
}

func (e *ConnectionError) Error() string {
	msg := "connection error"
	if e.Endpoint != "" {
		msg += " (" + e.Endpoint + ")"
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError создает ConnectionError.
func NewConnectionError(endpoint, message string, err error) *ConnectionError {
	return &ConnectionError{Endpoint: endpoint, Message: message, Err: err}
}

// UnknownVariableError - контроллер не знает переменную с таким именем.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable '%s'", e.Name)
}

// ValidationError - значение несовместимо с объявленным типом, диапазоном или переменная только для чтения.
type ValidationError struct {
	Name   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid write to '%s': %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid value '%s' for '%s': %s", e.Value, e.Name, e.Reason)
}

// ProtocolError - ответ контроллера не удалось разобрать.
type ProtocolError struct {
	Line    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %q", e.Message, e.Line)
}

// ControllerError - контроллер отклонил команду с кодом ошибки.
type ControllerError struct {
	Code    int
	Message string
	Name    string
}

func (e *ControllerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("error #%d: %s: %s", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("error #%d: %s", e.Code, e.Message)
}

// classify переводит ошибку контроллера в таксономию клиента.
func (e *ControllerError) classify(name string) error {
	if e.Name != "" {
		name = e.Name
	}
	switch e.Code {
	case ErrCodeUnknownVariable:
		return &UnknownVariableError{Name: name}
	case ErrCodeReadOnly:
		return &ValidationError{Name: name, Reason: "read-only"}
	case ErrCodeOutOfRange:
		return &ValidationError{Name: name, Reason: e.Message}
	default:
		return e
	}
}

// IsConnectionError сообщает, является ли ошибка ошибкой транспорта.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
