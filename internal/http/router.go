package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yatra_sevak/backend/internal/config"
	"github.com/yatra_sevak/backend/internal/db"
	"github.com/yatra_sevak/backend/internal/events"
	"github.com/yatra_sevak/backend/internal/geocode"
	"github.com/yatra_sevak/backend/internal/http/handlers"
	"github.com/yatra_sevak/backend/internal/http/middleware"
	"github.com/yatra_sevak/backend/internal/service"

	_ "github.com/yatra_sevak/backend/docs"
)

type Deps struct {
	Queue    *service.QueueService
	Safety   *service.SafetyService
	Hub      *events.Hub
	Store    *db.Store
	Geocoder geocode.Geocoder
	Logger   zerolog.Logger
}

func Router(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = strings.Split(cfg.CORSAllowed, ",")
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Queue:     deps.Queue,
		Safety:    deps.Safety,
		Hub:       deps.Hub,
		Store:     deps.Store,
		Geocoder:  deps.Geocoder,
		Validator: validator.New(),
		Logger:    deps.Logger,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/live", h.Live)

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.GET("/sites", h.SitesList)
		api.GET("/sites/nearest", h.SiteNearest)
		api.GET("/sites/:id/forecast", h.SiteForecast)
		api.GET("/sites/:id/queue", h.QueueStatus)
		api.POST("/sites/:id/queue", h.QueueJoin)
		api.POST("/sites/:id/sos", h.SOS)
		api.GET("/passes/:id", h.PassDetails)
		api.GET("/passes/:id/progress", h.PassProgress)
		api.GET("/surge", h.SurgeStatus)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/passes/priority", h.PassesPriority)
		admin.POST("/passes/cancel", h.PassesCancel)
		admin.POST("/passes/:id/call", h.PassCall)
		admin.PUT("/surge", h.SurgeSet)
		admin.POST("/sites/:id/surge/evaluate", h.SurgeEvaluate)
		admin.GET("/sites/:id/importances", h.SiteImportances)
		admin.GET("/sites/:id/alerts", h.AlertsList)
		admin.POST("/sites/:id/alerts/dispatch", h.AlertsDispatch)
		admin.POST("/sites/:id/scan", h.SiteScan)
		admin.GET("/sites/:id/history", h.SiteHistory)
		admin.GET("/queue/export", h.QueueExport)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
