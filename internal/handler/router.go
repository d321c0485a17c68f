package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/sma-gradebook/internal/middleware"
	"github.com/noah-isme/sma-gradebook/internal/service"
	"github.com/noah-isme/sma-gradebook/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-gradebook/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-gradebook/pkg/middleware/requestid"
)

// RouterConfig collects what the HTTP API needs to mount its routes.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Course         *CourseHandler
	Exports        *ExportHandler
}

// NewRouter builds the gin engine for serve mode.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(cfg.Metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metrics := NewMetricsHandler(cfg.Metrics)
	r.GET("/health", metrics.Health)
	r.GET("/metrics", metrics.Prometheus)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	if cfg.Course != nil {
		course := api.Group("/course")
		course.GET("", cfg.Course.Document)
		course.GET("/summary", cfg.Course.Summary)
		course.GET("/students/:id", cfg.Course.Student)
	}
	if cfg.Exports != nil {
		api.POST("/course/exports", cfg.Exports.Create)
		exports := api.Group("/exports")
		exports.GET("/jobs/:id", cfg.Exports.Status)
		exports.GET("/download/:token", cfg.Exports.Download)
	}

	return r
}
