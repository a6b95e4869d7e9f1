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
	"github.com/redis/go-redis/v9"

	"github.com/storyline-app/storyline-api/internal/handler"
	"github.com/storyline-app/storyline-api/internal/middleware"
	"github.com/storyline-app/storyline-api/internal/repository"
	"github.com/storyline-app/storyline-api/internal/service"
	"github.com/storyline-app/storyline-api/pkg/cache"
	"github.com/storyline-app/storyline-api/pkg/config"
	"github.com/storyline-app/storyline-api/pkg/database"
	"github.com/storyline-app/storyline-api/pkg/logger"
	corsmiddleware "github.com/storyline-app/storyline-api/pkg/middleware/cors"
	reqidmiddleware "github.com/storyline-app/storyline-api/pkg/middleware/requestid"
)

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

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to open database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, story cache disabled", "error", err)
			cfg.Cache.Enabled = false
		} else {
			defer redisClient.Close()
		}
	}

	storyRepo := repository.NewStoryRepository(db)
	lineRepo := repository.NewLineRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	adminLogRepo := repository.NewAdminLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	storySvc := service.NewStoryService(storyRepo, lineRepo, cacheRepo, logr, cfg.Story, cfg.Cache)
	lineSvc := service.NewLineService(lineRepo, storyRepo, cacheRepo, logr, cfg.Story, cfg.Cache)
	flagSvc := service.NewFlagService(flagRepo, logr, cfg.Story)
	authSvc := service.NewAuthService(cfg.Admin, logr)
	adminSvc := service.NewAdminService(lineRepo, adminLogRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resetSvc := service.NewResetService(storyRepo, logr, cfg.Reset)
	if cfg.Reset.Enabled {
		if err := resetSvc.Start(ctx); err != nil {
			logr.Sugar().Fatalw("failed to start reset scheduler", "error", err)
		}
		defer resetSvc.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	handler.RegisterRoutes(r, handler.Handlers{
		Story: handler.NewStoryHandler(storySvc),
		Line:  handler.NewLineHandler(lineSvc, metricsSvc),
		Flag:  handler.NewFlagHandler(flagSvc, metricsSvc),
		Admin: handler.NewAdminHandler(adminSvc, flagSvc, authSvc, cfg.Database.Path),
		Auth:  authSvc,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
