package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/medisupply/video-processor/pkg/apiserver"
	"github.com/medisupply/video-processor/pkg/config"
	"github.com/medisupply/video-processor/pkg/outbox"
	"github.com/medisupply/video-processor/pkg/pipeline"
	"github.com/medisupply/video-processor/pkg/storage"
	"github.com/medisupply/video-processor/pkg/store/postgres"
	redisclient "github.com/medisupply/video-processor/pkg/store/redis"
	"github.com/medisupply/video-processor/pkg/transform"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to migrate outbox table", zap.Error(err))
	}

	gateway, err := storage.NewGCSGateway(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to create storage gateway", zap.Error(err))
	}
	defer gateway.Close()

	overlayer, err := transform.NewOverlayer(cfg.Processing, transform.NewCommandRunner())
	if err != nil {
		logger.Fatal("failed to initialize overlay transformer", zap.Error(err))
	}

	var dedup pipeline.Deduper
	if len(cfg.Redis.Addresses) > 0 {
		redis, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redis.Close()
		dedup = redisclient.NewDedup(redis.Client(), cfg.Dedup.TTL)
	} else {
		logger.Info("redis not configured, delivery dedup disabled")
	}

	visitRepo := postgres.NewVisitRepository(db.DB())
	processor := pipeline.New(gateway, visitRepo, overlayer, dedup, logger, pipeline.Config{
		VideosFolder:  cfg.Storage.VideosFolder,
		SignedURLTTL:  cfg.Storage.SignedURLTTL,
		DBTimeout:     cfg.Processing.DBTimeout,
		MaxConcurrent: cfg.Processing.MaxConcurrent,
	})

	if len(cfg.Kafka.Brokers) > 0 {
		relay := outbox.NewRelay(
			postgres.NewOutboxRepository(db.DB()),
			newKafkaWriter(cfg.Kafka, cfg.Kafka.EventTopic),
			newKafkaWriter(cfg.Kafka, cfg.Kafka.DLQTopic),
			logger,
			cfg.Outbox.PollInterval,
			cfg.Outbox.BatchSize,
		)
		go relay.Run(ctx)
	} else {
		logger.Info("kafka not configured, outcome events stay in the outbox")
	}

	server := apiserver.NewServer(processor, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	go func() {
		logger.Info("starting video processor", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func newKafkaWriter(cfg config.KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}
