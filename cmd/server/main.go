package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/twitterlite/config"
	"github.com/d60-Lab/twitterlite/internal/api"
	"github.com/d60-Lab/twitterlite/internal/api/handler"
	"github.com/d60-Lab/twitterlite/internal/cache"
	"github.com/d60-Lab/twitterlite/internal/queue"
	"github.com/d60-Lab/twitterlite/internal/repository"
	"github.com/d60-Lab/twitterlite/internal/service"
	"github.com/d60-Lab/twitterlite/pkg/database"
	"github.com/d60-Lab/twitterlite/pkg/logger"
	"github.com/d60-Lab/twitterlite/pkg/tracing"
)

// @title TwitterLite API
// @version 1.0
// @description 微博后端：用户、消息、关注关系与写扩散时间线
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, "twitterlite", cfg.Trace.Endpoint)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("db init failed", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	recvRepo := repository.NewReceiverRepository(db)

	jobs := queue.New(db, queue.Options{
		Workers:      cfg.Queue.Workers,
		ClaimLimit:   cfg.Queue.ClaimLimit,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		PollInterval: cfg.Queue.PollInterval,
		LeaseTimeout: cfg.Queue.LeaseTimeout,
	})

	userCache := cache.NewUserCache(rdb, 5*time.Minute)
	userService := service.NewUserService(userRepo, followRepo, fanRepo, userCache, jobs)
	msgService := service.NewMessageService(db, msgRepo, recvRepo, userRepo, userCache, jobs)
	sessions := service.NewSessionService(userService, rdb, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	service.NewPropagator(fanRepo, msgRepo, recvRepo, jobs).Register()
	stopWorkers := jobs.Start()

	h := handler.New(userService, msgService, sessions)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.NewRouter(cfg, h, sessions)}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = stopWorkers(shutdownCtx)
	_ = shutdownTracing(shutdownCtx)
}
