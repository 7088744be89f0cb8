package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/market-feed/config"
	"github.com/d60-Lab/market-feed/internal/api"
	"github.com/d60-Lab/market-feed/internal/api/handler"
	"github.com/d60-Lab/market-feed/internal/interest"
	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/internal/repository"
	"github.com/d60-Lab/market-feed/internal/service"
	"github.com/d60-Lab/market-feed/pkg/database"
	"github.com/d60-Lab/market-feed/pkg/logger"
	"github.com/d60-Lab/market-feed/pkg/tracing"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("open database", zap.Error(err))
		panic(err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		logger.Error("migrate", zap.Error(err))
		panic(err)
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, running without cache", zap.Error(err))
			cache = nil
		}
	}

	var vectors interest.VectorSearcher
	if cfg.Interest.VectorServiceURL != "" {
		vectors = interest.NewHTTPVectorSearcher(cfg.Interest.VectorServiceURL)
	}

	feedRepo := repository.NewFeedRepository(db)
	contractRepo := repository.NewContractRepository(db)
	contractFollowRepo := repository.NewContractFollowRepository(db)
	userFollowRepo := repository.NewUserFollowRepository(db)
	likeRepo := repository.NewContractLikeRepository(db)

	resolver := interest.NewResolver(db, cache, vectors, cfg.Interest.CacheTTL)
	fanout := service.NewFanoutService(feedRepo, resolver)
	publisher := service.NewEventPublisher(db)
	relations := service.NewRelationService(contractFollowRepo, userFollowRepo, likeRepo)

	worker := service.NewFeedEventWorker(db, fanout, contractRepo,
		cfg.Feed.Workers, cfg.Feed.ClaimLimit, cfg.Feed.PollInterval, cfg.Feed.ClaimsPerSecond)
	stopWorker := worker.Start()

	h := handler.New(fanout, publisher, relations, contractRepo, feedRepo)
	router := api.NewRouter(h, cfg)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = stopWorker(shutdownCtx)
}
