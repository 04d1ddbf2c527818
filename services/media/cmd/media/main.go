package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediahub/internal/ratelimit"
	"mediahub/internal/util"
	objstore "mediahub/pkg/storage"
	"mediahub/services/media/internal/app"
	"mediahub/services/media/internal/config"
	"mediahub/services/media/internal/events"
	"mediahub/services/media/internal/server"
	"mediahub/services/media/internal/storage"
	"mediahub/services/media/internal/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mediaStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init media store: %v", err)
	}
	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init blob storage: %v", err)
	}
	publisher, err := openPublisher(cfg)
	if err != nil {
		log.Fatalf("failed to init event publisher: %v", err)
	}

	var limiter server.Limiter
	if cfg.RedisAddr != "" {
		l, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "mediahub:ratelimit:upload", cfg.UploadRateLimit, cfg.RateWindow())
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
		defer l.Close()
		limiter = l
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:  mediaStore,
		Blobs:  blobs,
		Events: publisher,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	httpServer, err := server.New(server.Config{
		App:            appCore,
		Blobs:          blobs,
		Limiter:        limiter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		FileBaseURL:    cfg.FileBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		// Large uploads stream through the handler, so body reads are not capped here.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("media server listening", "addr", addr, "store", cfg.StoreDriver, "blobs", cfg.BlobDriver, "cors_origins", cfg.CORSOrigins)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := publisher.Close(); err != nil {
		logger.Warn("close event publisher", "err", err)
	}
	if err := mediaStore.Close(closeCtx); err != nil {
		logger.Warn("close media store", "err", err)
	}
}

func openStore(ctx context.Context, cfg config.FileConfig) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewGormStore(cfg.DatabaseURL)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	}
}

func openBlobs(ctx context.Context, cfg config.FileConfig) (storage.Blobs, error) {
	if cfg.BlobDriver == "minio" {
		objects, err := objstore.NewMinioStore(ctx, objstore.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			Prefix:    "uploads/",
		})
		if err != nil {
			return nil, err
		}
		return storage.NewObjectBlobs(objects), nil
	}
	return storage.NewFileStore(cfg.UploadDir)
}

func openPublisher(cfg config.FileConfig) (events.Publisher, error) {
	switch {
	case cfg.AMQPURL != "":
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case cfg.EventsStream != "":
		return events.NewStreamPublisher(events.StreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.EventsStream,
		})
	default:
		return events.Noop{}, nil
	}
}
