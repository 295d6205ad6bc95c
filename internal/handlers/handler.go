package handlers

import (
	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler serves the pipeline API.
type Handler struct {
	services *service.Service
	params   service.Params // defaults for requests that do not override them
	log      *logger.Logger
}

// NewHandler uses params for requests that do not override tuning.
func NewHandler(services *service.Service, params service.Params, log *logger.Logger) *Handler {
	if log != nil {
		log = log.Component("http")
	}
	return &Handler{services: services, params: params, log: log}
}

// InitRoutes registers swagger, health, token and /api/v1 routes.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) authEnabled() bool {
	return h.services.Authorization != nil && h.services.Authorization.Enabled()
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/token", h.issueToken)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	if h.authEnabled() {
		api.Use(h.bearerMiddleware)
	}
	{
		api.POST("/process", h.process)
		api.POST("/runs", h.runSource)
		api.GET("/ws/process", h.wsProcess)
	}
}
