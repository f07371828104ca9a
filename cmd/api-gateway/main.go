package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	_ "github.com/noah-isme/batch-slot-api/api/swagger"
	"github.com/noah-isme/batch-slot-api/internal/handler"
	internalmiddleware "github.com/noah-isme/batch-slot-api/internal/middleware"
	"github.com/noah-isme/batch-slot-api/internal/models"
	"github.com/noah-isme/batch-slot-api/internal/repository"
	"github.com/noah-isme/batch-slot-api/internal/service"
	"github.com/noah-isme/batch-slot-api/pkg/cache"
	"github.com/noah-isme/batch-slot-api/pkg/config"
	"github.com/noah-isme/batch-slot-api/pkg/database"
	"github.com/noah-isme/batch-slot-api/pkg/events"
	"github.com/noah-isme/batch-slot-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/batch-slot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/batch-slot-api/pkg/middleware/requestid"
	"github.com/noah-isme/batch-slot-api/pkg/tracing"
)

// @title Batch Slot Scheduling API
// @version 1.0.0
// @description Weekly recurring-slot scheduling with teacher and participant conflict detection.
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	projector, err := service.NewTimezoneProjector(cfg.Scheduling.ReferenceTimezone, cfg.Scheduling.ReferenceLabel, nil)
	if err != nil {
		logr.Fatal("invalid reference timezone", zap.Error(err))
	}
	catalog, err := service.NewSlotCatalog(service.SlotCatalogConfig{
		FirstStart: cfg.Scheduling.CatalogFirstStart,
		LastEnd:    cfg.Scheduling.CatalogLastEnd,
		Duration:   cfg.Scheduling.SlotDuration,
		Days:       cfg.Scheduling.CatalogDays,
	})
	if err != nil {
		logr.Fatal("invalid slot catalog", zap.Error(err))
	}

	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}

	var drafts service.DraftStore = service.NewMemoryDraftStore()
	var redisClient *redis.Client
	if cfg.Scheduling.DraftStore == config.DraftStoreRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, keeping batch drafts in memory", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduling.DraftTTL, logr)
			drafts = service.NewCacheDraftStore(cacheSvc)
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	publisher := events.NewPublisher(cfg.Kafka, logr)
	defer publisher.Close() //nolint:errcheck

	batchRepo := repository.NewBatchRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	preferenceRepo := repository.NewCoursePreferenceRepository(db)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	batchSvc := service.NewBatchService(batchRepo, directoryRepo, drafts, publisher, catalog, projector, metricsSvc, validate, logr,
		service.BatchServiceConfig{DraftTTL: cfg.Scheduling.DraftTTL})
	preferenceSvc := service.NewCoursePreferenceService(preferenceRepo, directoryRepo, catalog, projector, metricsSvc, validate, logr)
	timetableSvc := service.NewTimetableExportService(batchSvc, logr)

	slotHandler := handler.NewSlotHandler(batchSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	draftHandler := handler.NewBatchDraftHandler(batchSvc)
	participantHandler := handler.NewParticipantHandler(batchSvc, timetableSvc, preferenceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	planners := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator, models.RoleSuperAdmin)
	participantAccess := internalmiddleware.RBAC(
		string(models.RoleAdmin),
		string(models.RoleCoordinator),
		string(models.RoleSuperAdmin),
		internalmiddleware.RoleSelf,
	)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))
	{
		api.GET("/slots/catalog", slotHandler.Catalog)
		api.POST("/slots/project", slotHandler.Project)
		api.POST("/availability/check", planners, slotHandler.CheckAvailability)

		api.GET("/batches", batchHandler.List)
		api.GET("/batches/:id", batchHandler.Get)
		api.DELETE("/batches/:id", planners, batchHandler.Delete)

		draftRoutes := api.Group("/batch-drafts", planners)
		draftRoutes.POST("", draftHandler.Start)
		draftRoutes.GET("/:id", draftHandler.Get)
		draftRoutes.DELETE("/:id", draftHandler.Discard)
		draftRoutes.POST("/:id/days", draftHandler.SelectDay)
		draftRoutes.DELETE("/:id/days/:day", draftHandler.DeselectDay)
		draftRoutes.PUT("/:id/days/:day/slot", draftHandler.SelectSlot)
		draftRoutes.PUT("/:id/teacher", draftHandler.SetTeacher)
		draftRoutes.POST("/:id/participants", draftHandler.AssignParticipants)
		draftRoutes.DELETE("/:id/participants/:participantId", draftHandler.RemoveParticipant)
		draftRoutes.POST("/:id/participants/availability", draftHandler.ParticipantAvailability)
		draftRoutes.POST("/:id/commit", draftHandler.Commit)

		participantRoutes := api.Group("/participants/:id", participantAccess)
		participantRoutes.GET("/occupancy", participantHandler.Occupancy)
		participantRoutes.GET("/timetable", participantHandler.Timetable)
		participantRoutes.GET("/preferences", participantHandler.Preferences)
		participantRoutes.PUT("/preferences/:courseId", participantHandler.ReplacePreferences)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(r, cfg.Tracing.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
