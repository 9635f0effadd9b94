package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/auth"
	"github.com/dogukanozdemir/Brokerage/internal/config"
	"github.com/dogukanozdemir/Brokerage/internal/handlers"
	"github.com/dogukanozdemir/Brokerage/internal/health"
	"github.com/dogukanozdemir/Brokerage/internal/httpmiddleware"
	"github.com/dogukanozdemir/Brokerage/internal/kafka"
	"github.com/dogukanozdemir/Brokerage/internal/logging"
	"github.com/dogukanozdemir/Brokerage/internal/metrics"
	"github.com/dogukanozdemir/Brokerage/internal/rate"
	"github.com/dogukanozdemir/Brokerage/internal/security"
	"github.com/dogukanozdemir/Brokerage/internal/service"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env, cfg.App.LogFile)

	if cfg.App.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	brokerageMetrics := service.NewMetrics(registry)

	ready := health.NewManager(false)

	pool, err := connectDB(cfg)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := storage.New(pool)

	var producer kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaMetrics := kafka.NewProducerMetrics(registry)
		syncProducer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, logger, kafkaMetrics)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer syncProducer.Close()
		producer = syncProducer
	} else {
		logger.Info("kafka disabled, order events will not be published")
	}

	limiter := buildLoginLimiter(cfg, logger)

	orderSvc := service.NewOrderService(store, producer, logger, brokerageMetrics, service.Topics{
		OrderCreated:  cfg.Kafka.Topics.OrderCreated,
		OrderCanceled: cfg.Kafka.Topics.OrderCanceled,
		OrderMatched:  cfg.Kafka.Topics.OrderMatched,
	})
	assetSvc := service.NewAssetService(store, logger, brokerageMetrics)

	argon2 := security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}

	authHandler := handlers.NewAuthHandler(store, logger, cfg.JWTSecret, cfg.AccessTokenTTL, argon2, limiter)
	orderHandler := handlers.NewOrderHandler(orderSvc, logger)
	assetHandler := handlers.NewAssetHandler(assetSvc, logger)
	adminHandler := handlers.NewAdminHandler(orderSvc, logger)

	router := gin.New()
	router.Use(httpmiddleware.RequestID())
	router.Use(httpmiddleware.Logger(logger))
	router.Use(httpmiddleware.Recovery(logger))

	router.GET("/healthz", health.LivenessHandler)
	router.GET("/readyz", health.ReadinessHandler(ready))
	router.GET(cfg.App.MetricsPath, gin.WrapH(metrics.Handler(registry)))

	authHandler.Register(router)

	authed := router.Group("", auth.Middleware([]byte(cfg.JWTSecret)))
	orderHandler.Register(authed)
	assetHandler.Register(authed)

	admin := router.Group("", auth.Middleware([]byte(cfg.JWTSecret)), auth.RequireAdmin())
	adminHandler.Register(admin)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}

	ready.SetReady(true)

	go func() {
		logger.Info("brokerage http starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	waitForShutdown(httpServer, ready, logger)
}

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.ConnString())
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildLoginLimiter(cfg *config.Config, logger *slog.Logger) rate.Limiter {
	if cfg.RateLimit.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		logger.Info("login rate limiting via redis", "addr", cfg.RateLimit.Redis.Addr)
		return rate.NewRedisLimiter(client, cfg.RateLimit.LoginLimit, cfg.RateLimit.Window, cfg.RateLimit.Redis.Prefix)
	}
	return rate.NewMemory(cfg.RateLimit.LoginLimit, cfg.RateLimit.Window)
}

func waitForShutdown(httpServer *http.Server, ready *health.Manager, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown started")
	ready.SetReady(false)

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
