package handlers

import (
	"airspace_fan/internal/logger"
	"airspace_fan/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Event stream on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/pair", h.pair)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.clientIdMiddleware)
	{
		h.registerFanRoutes(api)
		h.registerAlertRoutes(api)
		h.registerLogRoutes(api)
		h.registerLifecycleRoutes(api)
	}
}

func (h *Handler) registerFanRoutes(api *gin.RouterGroup) {
	fans := api.Group("/fans")
	{
		fans.GET("", h.listFans)
		fans.GET("/:mac", h.getFan)
		// Body example: {"level":3}
		fans.POST("/:mac/speed", h.setSpeed)
		// Body example: {"hours":2}
		fans.POST("/:mac/timer", h.setTimer)
		fans.POST("/:mac/refresh", h.refreshFan)
		fans.PUT("/:mac/name", h.renameFan)
		fans.GET("/:mac/logs", h.getFanLogs)
	}
	api.POST("/scan", h.startScan)
	api.DELETE("/scan", h.cancelScan)
}

func (h *Handler) registerAlertRoutes(api *gin.RouterGroup) {
	api.GET("/thresholds", h.getThresholds)
	api.PUT("/thresholds", h.putThresholds)
	api.GET("/alert", h.getAlert)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}

func (h *Handler) registerLifecycleRoutes(api *gin.RouterGroup) {
	api.GET("/lifecycle", h.getLifecycle)
	api.POST("/lifecycle", h.postLifecycle)
}
