package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exchange-widget/internals/adapter/cache"
	"exchange-widget/internals/adapter/cache/schedular"
	"exchange-widget/internals/adapter/exchangerateapi"
	"exchange-widget/internals/api"
	"exchange-widget/internals/config"
	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/helpers"
	"exchange-widget/internals/metrics"
	"exchange-widget/internals/repository"
	"exchange-widget/internals/service"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting Exchange Widget Service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ServerPort),
		zap.String("defaultRange", string(cfg.DefaultRange)),
		zap.Duration("refreshInterval", cfg.RefreshInterval),
		zap.Bool("redis", cfg.RedisEnabled()),
	)
	if cfg.APIKey == "" {
		logger.Warn("API_KEY is empty; upstream requests will be rejected")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	exchangeAPI := helpers.NewExchangeRateAPI(cfg.APIBaseURL, cfg.APIKey, cfg.HTTPTimeout, logger)
	apiClient := exchangerateapi.NewClient(exchangeAPI, logger)
	rateCache := cache.NewRateCache(domain.CacheDuration, logger)
	rateRepo := repository.NewCachedRateRepository(apiClient, rateCache, appMetrics, domain.PacingDelay, logger)

	snapshot := api.NewSnapshot(domain.ModeDirect, cfg.DefaultRange)
	widget := service.NewWidgetService(rateRepo, snapshot, cfg.DefaultRange, logger)
	apiHandler := api.NewHandler(widget, snapshot, logger)

	app := fiber.New(fiber.Config{
		AppName:      "Exchange Widget Service",
		ErrorHandler: api.NewErrorHandler(logger),
	})
	api.SetupRouter(app, apiHandler, appMetrics, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var refreshLock schedular.Locker
	if cfg.RedisEnabled() {
		redisClient := setupRedis(cfg, logger)
		defer redisClient.Close()
		refreshLock = cache.NewRedisLock(redisClient, schedular.LockKey, schedular.LockTTL(cfg.HTTPTimeout), logger)
	}

	go func() {
		if err := widget.Init(ctx); err != nil {
			logger.Warn("Initial widget load finished with errors", zap.Error(err))
		}
		schedular.StartBackgroundRefresh(ctx, cfg.RefreshInterval, widget, refreshLock, appMetrics, logger)
	}()

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("Could not start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
		return
	}

	logger.Info("Server exited gracefully")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		panic(err)
	}

	return logger
}

func setupRedis(cfg *config.Config, logger *zap.Logger) *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn("Redis connection failed, refresh cycles will be skipped until it recovers", zap.Error(err))
	} else {
		logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	return redisClient
}
