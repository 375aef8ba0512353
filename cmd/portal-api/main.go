package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"

	_ "github.com/noah-isme/leads-portal-api/api/swagger"
	"github.com/noah-isme/leads-portal-api/internal/google"
	"github.com/noah-isme/leads-portal-api/internal/handler"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/internal/repository"
	"github.com/noah-isme/leads-portal-api/internal/service"
	"github.com/noah-isme/leads-portal-api/pkg/cache"
	"github.com/noah-isme/leads-portal-api/pkg/config"
	"github.com/noah-isme/leads-portal-api/pkg/database"
	"github.com/noah-isme/leads-portal-api/pkg/logger"
	"github.com/noah-isme/leads-portal-api/pkg/signer"
)

// @title Leads Portal API
// @version 1.0.0
// @description Shared lead-entry workspace backed by Google Drive and Sheets
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	fileRepo := repository.NewDataFileRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, logr)

	credentials := google.NewCredentialResolver(
		credentialRepo,
		cacheSvc,
		cache.NewEntry(cfg.Cache.Credentials),
		models.SocialApp{Provider: models.ProviderGoogle, ClientID: cfg.Google.ClientID, Secret: cfg.Google.ClientSecret},
		logr,
	)
	workspaces := google.NewFactory(
		credentials,
		cacheSvc,
		cache.NewEntry(cfg.Cache.FolderStructure),
		google.FolderNames{Root: cfg.Google.RootFolderName, Data: cfg.Google.DataFolderName, Responses: cfg.Google.ResponsesFolderName},
		metrics,
		logr,
	)

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       cfg.Google.Scopes,
		Endpoint:     googleOAuth.Endpoint,
	}

	services := services{
		auth: service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
			AccessTokenSecret:  cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.Expiration,
			RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
			Issuer:             cfg.JWT.Issuer,
			MaxLoginAttempts:   cfg.Spaces.MaxLoginAttempts,
		}),
		link:   service.NewGoogleLinkService(oauthConfig, signer.NewStateSigner(cfg.Google.StateSecret, cfg.Google.StateTTL), credentialRepo, userRepo, workspaces, logr),
		spaces: service.NewSpaceService(spaceRepo, userRepo, fileRepo, workspaces, validate, logr),
		files: service.NewFileService(fileRepo, spaceRepo, userRepo, workspaces, validate, logr, service.FileConfig{
			MaxUploadBytes: cfg.Spaces.MaxUploadBytes,
			AllowedMIMEs:   cfg.Spaces.AllowedMIMEs,
		}),
		entries: service.NewEntryService(fileRepo, studentRepo, spaceRepo, userRepo, workspaces, validate, metrics, logr, service.EntryConfig{
			ScanWindow: cfg.Spaces.ScanWindow,
		}),
		metrics: metrics,
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	}

	auditWriter := service.NewAuditWriter(userRepo, logr)
	auditWriter.Start(context.Background())

	r := newRouter(cfg, logr, services, auditWriter, checks)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	auditWriter.Stop()
	logr.Info("server stopped")
}
