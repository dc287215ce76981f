package ppmac

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iwtcode/ppmacAdapter/axis"
	"github.com/iwtcode/ppmacAdapter/fly"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/models"
	"github.com/sirupsen/logrus"
)

// Option настраивает Client.
type Option func(*options)

type options struct {
	connector gpascii.Connector
	logger    *logrus.Logger
}

// WithConnector подменяет транспорт, например симулятором.
func WithConnector(c gpascii.Connector) Option {
	return func(o *options) { o.connector = c }
}

// WithLogger передает готовый логгер вместо создаваемого по LogLevel.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client является основной точкой входа для взаимодействия с библиотекой.
type Client struct {
	manager *gpascii.Manager
	tracker *axis.Tracker
	config  *Config
	logger  *logrus.Logger
}

// New создает клиент и устанавливает соединение с контроллером.
func New(cfg *Config, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = newLogger(cfg.LogLevel)
	}

	connector := o.connector
	if connector == nil {
		connector = &gpascii.TCPConnector{}
	}

	sessionOpts := []gpascii.SessionOption{
		gpascii.WithBatching(cfg.Batch),
		gpascii.WithCommandTimeout(time.Duration(cfg.TimeoutMs) * time.Millisecond),
	}
	if cfg.Username != "" {
		sessionOpts = append(sessionOpts, gpascii.WithCredentials(cfg.Username, cfg.Password))
	}

	backoff := time.Duration(cfg.BackoffMs) * time.Millisecond
	manager := gpascii.NewManager(cfg.Endpoint, connector,
		gpascii.WithRetries(cfg.Retries),
		gpascii.WithBackoff(backoff, 25*backoff),
		gpascii.WithSessionOptions(sessionOpts...),
		gpascii.WithManagerLogger(logger.WithField("component", "gpascii")),
	)

	if _, err := manager.Connect(context.Background()); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to connect to controller: %w", err)
	}

	tracker := axis.NewTracker(manager,
		axis.WithPollInterval(time.Duration(cfg.PollIntervalMs)*time.Millisecond),
		axis.WithTolerance(cfg.Tolerance),
		axis.WithLogger(logger.WithField("component", "axis")),
	)

	return &Client{
		manager: manager,
		tracker: tracker,
		config:  cfg,
		logger:  logger,
	}, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()

	if level == "off" || level == "none" {
		logger.SetOutput(io.Discard)
	} else {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		logger.SetLevel(lvl)
		logger.SetOutput(os.Stdout)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}

// Close закрывает соединение с контроллером.
func (c *Client) Close() error {
	return c.manager.Close()
}

// GetLogger возвращает используемый логгер.
func (c *Client) GetLogger() *logrus.Logger {
	return c.logger
}

// Manager возвращает менеджер соединения для прямого доступа к переменным.
func (c *Client) Manager() *gpascii.Manager {
	return c.manager
}

// Tracker возвращает трекер осей.
func (c *Client) Tracker() *axis.Tracker {
	return c.tracker
}

// Info возвращает адрес, версию прошивки и состояние соединения.
func (c *Client) Info(ctx context.Context) (models.ControllerInfo, error) {
	info := models.ControllerInfo{Endpoint: c.manager.Endpoint()}
	err := c.manager.Do(ctx, func(s *gpascii.Session) error {
		info.Version = s.Version()
		return nil
	})
	info.State = c.manager.State().String()
	return info, err
}

// GetVariable читает переменную контроллера.
func (c *Client) GetVariable(ctx context.Context, name string) (gpascii.Value, error) {
	return c.manager.GetVariable(ctx, name)
}

// GetVariables читает несколько переменных.
func (c *Client) GetVariables(ctx context.Context, names ...string) ([]gpascii.Value, error) {
	return c.manager.GetVariables(ctx, names...)
}

// SetVariable записывает переменную контроллера.
func (c *Client) SetVariable(ctx context.Context, name string, v gpascii.Value) error {
	return c.manager.SetVariable(ctx, name, v)
}

// Register привязывает имя к номеру оси.
func (c *Client) Register(name string, axisNumber int) error {
	return c.tracker.Register(name, axisNumber)
}

// RegisterPositioner регистрирует устройство, управляемое осью.
func (c *Client) RegisterPositioner(p axis.PositionerLike, axisNumber int) error {
	return c.tracker.RegisterPositioner(p, axisNumber)
}

// AxisStatus возвращает состояние оси по имени.
func (c *Client) AxisStatus(ctx context.Context, name string) (models.AxisStatus, error) {
	return c.tracker.Status(ctx, name)
}

// WaitUntilInPosition ждет, пока ось встанет в позицию.
func (c *Client) WaitUntilInPosition(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	return c.tracker.WaitUntilInPosition(ctx, name, timeout)
}

// NewFlyScan создает координатор для одного скана.
func (c *Client) NewFlyScan(opts ...fly.Option) *fly.Coordinator {
	base := []fly.Option{
		fly.WithPollInterval(time.Duration(c.config.PollIntervalMs) * time.Millisecond),
		fly.WithLogger(c.logger.WithField("component", "fly")),
	}
	return fly.NewCoordinator(c.manager, c.tracker, append(base, opts...)...)
}

// FlyScan программирует, запускает скан и ждет его завершения.
func (c *Client) FlyScan(ctx context.Context, traj models.Trajectory, opts ...fly.Option) (models.ScanResult, error) {
	scan := c.NewFlyScan(opts...)
	if err := scan.Program(ctx, traj); err != nil {
		return models.ScanResult{}, err
	}
	if err := scan.Start(ctx); err != nil {
		return models.ScanResult{}, err
	}

	res, err := scan.Wait(ctx)
	if err != nil {
		// Контекст вызывающего отменен, скан на контроллере нужно остановить.
		_ = scan.Abort(context.WithoutCancel(ctx))
		return scan.Result(), err
	}
	return res, res.Err
}
