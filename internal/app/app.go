package app

import (
	"context"
	"net/http"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/internal/adapters/handlers"
	"github.com/iwtcode/ppmacAdapter/internal/adapters/observability"
	"github.com/iwtcode/ppmacAdapter/internal/adapters/repositories/postgres"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/swagger"
	"github.com/iwtcode/ppmacAdapter/internal/services/kafka"
	"github.com/iwtcode/ppmacAdapter/internal/services/ppmac_service"
	"github.com/iwtcode/ppmacAdapter/internal/usecases"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(
		ConfigModule,
		LoggingModule,
		MetricsModule,
		RepositoryModule,
		ProducerModule,
		ServiceModule,
		UsecaseModule,
		HttpServerModule,
		// Invoke-функции для запуска фоновых задач и хуков жизненного цикла
		fx.Invoke(InvokeRestoreConnections),
		fx.Invoke(InvokeShutdown),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(config.LoadConfiguration),
)

func ProvideLogger(cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	return logging.NewLogger(loggerCfg, "PpmacServiceApp")
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

var MetricsModule = fx.Module("metrics_module",
	fx.Provide(
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
		func() prometheus.Gatherer { return prometheus.DefaultGatherer },
		observability.NewPromMetrics,
	),
)

var RepositoryModule = fx.Module("repository_module",
	fx.Provide(postgres.NewRepository),
)

var ProducerModule = fx.Module("producer_module",
	fx.Provide(kafka.NewKafkaProducer),
)

// ProvideConnector возвращает TCP-подключение к контроллерам с таймаутом из конфигурации.
func ProvideConnector(cfg *config.AppConfig) gpascii.Connector {
	connector := &gpascii.TCPConnector{}
	connector.Dialer.Timeout = time.Duration(cfg.Ppmac.TimeoutMs) * time.Millisecond
	return connector
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(
		ProvideConnector,
		ppmac_service.NewPpmacService,
	),
)

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(usecases.NewUsecases),
)

func NewSwaggerConfig() *swagger.Config {
	return &swagger.Config{
		Enabled: true,
		Path:    "/swagger",
	}
}

var HttpServerModule = fx.Module("http_server_module",
	fx.Provide(
		NewSwaggerConfig,
		handlers.NewHandler,
		handlers.ProvideRouter,
	),
	fx.Invoke(InvokeHttpServer),
)

// InvokeRestoreConnections восстанавливает подключения при старте.
// Сканы не восстанавливаются: контроллер за время простоя мог быть перезапущен.
func InvokeRestoreConnections(lc fx.Lifecycle, uc interfaces.Usecases, dbRepo interfaces.PpmacControllerRepository, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Restoring connections from the database...")
			controllers, err := dbRepo.GetAll()
			if err != nil {
				logger.Error("Failed to get controller list from DB", "error", err)
				return nil // Не фатально, просто продолжаем
			}

			if len(controllers) == 0 {
				logger.Info("No saved connections found to restore.")
				return nil
			}

			for _, controller := range controllers {
				logger.Info("Attempting to restore connection", "sessionID", controller.SessionID, "endpoint", controller.EndpointURL)

				connInfo, err := uc.RestoreConnection(controller)
				if err == nil && connInfo.IsHealthy {
					logger.Info("Connection restored successfully in pool", "sessionID", controller.SessionID, "version", connInfo.Version)
				} else {
					logger.Warn("Connection restored in pool but is unhealthy.", "sessionID", controller.SessionID, "error", err)
				}
			}
			return nil
		},
	})
}

// InvokeShutdown прерывает сканы, закрывает сессии и продюсер при остановке.
func InvokeShutdown(lc fx.Lifecycle, svc interfaces.PpmacService, producer interfaces.KafkaService, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing controller sessions...")
			svc.CloseAll()
			if err := producer.Close(); err != nil {
				logger.Warn("Failed to close Kafka producer", "error", err)
			}
			_ = logger.Close()
			return nil
		},
	})
}

// InvokeHttpServer запускает HTTP-сервер.
func InvokeHttpServer(lc fx.Lifecycle, cfg *config.AppConfig, h http.Handler, logger *logging.Logger) {
	serverAddr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("HTTP Server is starting", "address", serverAddr)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Failed to start server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
