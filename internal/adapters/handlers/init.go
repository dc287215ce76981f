package handlers

import (
	"net/http"

	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler - структура для обработчиков HTTP-запросов
type Handler struct {
	usecase interfaces.Usecases
	logger  *logging.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(usecase interfaces.Usecases, logger *logging.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		logger:  logger.WithPrefix("HANDLER"),
	}
}

// ProvideRouter настраивает и возвращает HTTP-роутер
func ProvideRouter(h *Handler, cfg *config.AppConfig, swagCfg *swagger.Config, gatherer prometheus.Gatherer) http.Handler {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// Swagger
	swagger.Setup(router, swagCfg)

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Logger Middleware
	router.Use(LoggingMiddleware(h.logger))

	// Группа API v1
	v1 := router.Group("/api/v1")
	{
		connections := v1.Group("/connect")
		{
			connections.POST("", h.CreateConnection)
			connections.GET("", h.GetConnections)
			connections.DELETE("", h.DeleteConnection)
			connections.POST("/check", h.CheckConnection)
		}

		variables := v1.Group("/variables")
		{
			variables.GET("", h.GetVariables)
			variables.POST("", h.SetVariable)
		}

		axes := v1.Group("/axes")
		{
			axes.POST("", h.RegisterAxis)
			axes.GET("/status", h.AxisStatus)
		}

		scans := v1.Group("/scans")
		{
			scans.POST("", h.StartScan)
			scans.GET("/status", h.GetScan)
			scans.POST("/abort", h.AbortScan)
		}
	}

	return router
}
