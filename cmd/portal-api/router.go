package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/leads-portal-api/internal/handler"
	"github.com/noah-isme/leads-portal-api/internal/middleware"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/internal/service"
	"github.com/noah-isme/leads-portal-api/pkg/config"
	"github.com/noah-isme/leads-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/leads-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/leads-portal-api/pkg/middleware/requestid"
)

type services struct {
	auth    *service.AuthService
	link    *service.GoogleLinkService
	spaces  *service.SpaceService
	files   *service.FileService
	entries *service.EntryService
	metrics *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc services, audit middleware.AuditRecorder, checks map[string]handler.ReadinessCheck) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(svc.metrics, cfg.Metrics.Path, "/health", "/ready"))
	}

	metricsHandler := handler.NewMetricsHandler(svc.metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	googleHandler := handler.NewGoogleHandler(svc.link)
	spaceHandler := handler.NewSpaceHandler(svc.spaces)
	fileHandler := handler.NewFileHandler(svc.files)
	entryHandler := handler.NewEntryHandler(svc.entries)

	audited := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(audit, logr, action, resource, idParam)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/google/callback", googleHandler.Callback)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.auth))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/auth/google/connect", middleware.RequireSpaceOwner(), googleHandler.Connect)

	secured.POST("/spaces/initialize", middleware.RequireSpaceOwner(), audited(models.AuditActionSpaceInit, "document_space", ""), spaceHandler.Initialize)
	secured.GET("/spaces", spaceHandler.List)

	space := secured.Group("/spaces/:spaceId")
	space.GET("", spaceHandler.Get)
	space.DELETE("", audited(models.AuditActionSpaceDelete, "document_space", "spaceId"), spaceHandler.Delete)
	space.POST("/managers", audited(models.AuditActionMemberAdd, "document_space", "spaceId"), spaceHandler.AddManager)
	space.DELETE("/managers", audited(models.AuditActionMemberRemove, "document_space", "spaceId"), spaceHandler.RemoveManager)
	space.POST("/writers", audited(models.AuditActionMemberAdd, "document_space", "spaceId"), spaceHandler.AddWriter)
	space.DELETE("/writers", audited(models.AuditActionMemberRemove, "document_space", "spaceId"), spaceHandler.RemoveWriter)
	space.POST("/members", audited(models.AuditActionMemberCreate, "document_space", "spaceId"), spaceHandler.CreateMember)

	space.GET("/files", fileHandler.List)
	space.POST("/files", audited(models.AuditActionFileUpload, "document_space", "spaceId"), fileHandler.Upload)

	file := space.Group("/files/:fileId")
	file.DELETE("", audited(models.AuditActionFileDelete, "data_file", "fileId"), fileHandler.Delete)
	file.GET("/entry", entryHandler.Current)
	file.POST("/entry", audited(models.AuditActionEntrySubmit, "data_file", "fileId"), entryHandler.Submit)
	file.GET("/followups", entryHandler.FollowUps)
	file.GET("/followups/export", entryHandler.ExportFollowUps)
	file.GET("/students/:studentId/responses", entryHandler.Responses)
	file.POST("/students/:studentId/responses", audited(models.AuditActionEntryUpdate, "student", "studentId"), entryHandler.Update)
	file.POST("/students/:studentId/resolve", audited(models.AuditActionEntryResolve, "student", "studentId"), entryHandler.Resolve)

	return r
}
