package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/skucast/skucast/internal/config"
	"github.com/skucast/skucast/internal/db"
	"github.com/skucast/skucast/internal/logger"
	"github.com/skucast/skucast/internal/middleware"
	"github.com/skucast/skucast/internal/pipeline"
	"github.com/skucast/skucast/internal/repository"
	"github.com/skucast/skucast/internal/storage"
)

func main() {
	log := logger.New()

	cfg, err := config.Load(".")
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database.URL(), "./migrations"); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	store, err := newByteStore(ctx, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize byte store")
	}

	uploadRepo := repository.NewUploadRepository(conn.Pool)
	recordRepo := repository.NewSalesRecordRepository(conn.Pool)

	service := pipeline.NewService(uploadRepo, recordRepo, store, log)
	handler := pipeline.NewHTTPHandler(service, int64(cfg.Storage.MaxUploadSizeMB)<<20)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	handler.Register(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.Logging(log)(mux)),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func newByteStore(ctx context.Context, cfg config.StorageConfig) (storage.ByteStore, error) {
	if cfg.Backend == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKey,
			SecretAccessKey: cfg.MinioSecretKey,
			Bucket:          cfg.MinioBucket,
			UseSSL:          cfg.MinioUseSSL,
		})
	}
	return storage.NewFilesystemStore(cfg.UploadDir)
}
