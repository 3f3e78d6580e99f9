package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/videoproc/internal/upload"
	"github.com/your-org/videoproc/pkg/config"
	"github.com/your-org/videoproc/pkg/kafka"
	"github.com/your-org/videoproc/pkg/logger"
	"github.com/your-org/videoproc/pkg/processor"
	"github.com/your-org/videoproc/pkg/storage/objectstore"
	"github.com/your-org/videoproc/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(logger.Options{
		Level:       cfg.App.LogLevel,
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Attributes:     tracing.ParseAttributes(cfg.Tracing.ResourceAttr),
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	checkDirs(logr, cfg)
	if err := upload.EnsureTempDir(cfg.Upload.TempDir); err != nil {
		logr.Fatal("create upload temp dir", zap.String("dir", cfg.Upload.TempDir), zap.Error(err))
	}

	params := upload.Params{
		UploadDir:    cfg.Upload.Dir,
		ProcessedDir: cfg.Upload.ProcessedDir,
		Runner: &processor.ExecRunner{
			Command: cfg.Processor.Command,
			Args:    cfg.Processor.Args,
			Dir:     cfg.Processor.Dir,
			Timeout: cfg.Processor.Timeout,
		},
		Logger: logr,
	}

	if cfg.Kafka.Enabled {
		params.Events = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.ProcessingTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
	}

	if cfg.Storage.Enabled {
		store, err := objectstore.New(objectstore.Config{
			Provider:  cfg.Storage.Provider,
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logr.Fatal("init object store", zap.Error(err))
		}
		params.Archive = store
	}

	service := upload.NewService(params)

	handler := upload.NewHTTPHandler(service, logr, upload.HTTPConfig{
		Field:        cfg.Upload.Field,
		TempDir:      cfg.Upload.TempDir,
		ProcessedDir: cfg.Upload.ProcessedDir,
		MaxSizeBytes: cfg.Upload.MaxSizeBytes,
		MaxFileBytes: cfg.Upload.MaxFileBytes,
		LegacyStatus: cfg.Upload.LegacyStatus,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := service.Close(); err != nil {
			logr.Error("service shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("uploader starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("upload_dir", cfg.Upload.Dir),
		zap.String("processed_dir", cfg.Upload.ProcessedDir),
		zap.String("temp_dir", cfg.Upload.TempDir),
		zap.String("processor", cfg.Processor.Command),
		zap.Strings("processor_args", cfg.Processor.Args),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

// checkDirs only warns: provisioning the directories is the deployment's job,
// and a missing upload directory is reported per request.
func checkDirs(logr *zap.Logger, cfg *config.Config) {
	for _, dir := range []string{cfg.Upload.Dir, cfg.Upload.ProcessedDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			logr.Warn("directory not found", zap.String("dir", dir))
		}
	}
}
