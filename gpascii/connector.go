package gpascii

import (
	"context"
	"net"
)

// Connector открывает транспортное соединение с контроллером.
// Подменяется в тестах без патчинга глобального состояния.
type Connector interface {
	Connect(ctx context.Context, endpoint string) (net.Conn, error)
}

// ConnectorFunc позволяет использовать функцию как Connector.
type ConnectorFunc func(ctx context.Context, endpoint string) (net.Conn, error)

func (f ConnectorFunc) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	return f(ctx, endpoint)
}

// TCPConnector подключается к текстовому порту контроллера по TCP.
type TCPConnector struct {
	Dialer net.Dialer
}

func (c *TCPConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	connectCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	return c.Dialer.DialContext(connectCtx, "tcp", endpoint)
}

// Caller - минимальный контракт доступа к переменным, которым пользуются
// трекер осей и координатор скана. Закрывать соединение через него нельзя.
type Caller interface {
	GetVariable(ctx context.Context, name string) (Value, error)
	GetVariables(ctx context.Context, names ...string) ([]Value, error)
	SetVariable(ctx context.Context, name string, v Value) error
}
