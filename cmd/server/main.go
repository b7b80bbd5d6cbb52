package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sdko-org/shortlink/internal/cache"
	"github.com/sdko-org/shortlink/internal/clicks"
	"github.com/sdko-org/shortlink/internal/config"
	"github.com/sdko-org/shortlink/internal/database"
	"github.com/sdko-org/shortlink/internal/handlers"
	"github.com/sdko-org/shortlink/internal/shortener"
	"github.com/sdko-org/shortlink/internal/storage"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		DBName:   cfg.PostgresDatabase,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database setup failed")
	}

	kv, err := cache.NewRedisKV(logger, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.WithError(err).Fatal("Redis setup failed")
	}
	defer kv.Close()

	store := storage.NewLinkStore(db)
	linkCache := cache.NewLinks(logger, kv, cfg.CacheTTL)
	alloc := shortener.NewAllocator(store, cfg.ShortCodeLength, cfg.CodeMaxAttempts)
	svc := shortener.NewService(logger, store, linkCache, alloc)

	recorder := clicks.NewRecorder(logger, store, kv, cfg.ClickQueueSize, cfg.ClickWorkers)
	defer recorder.Close()

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	if cfg.S3Bucket != "" {
		archiver := clicks.NewArchiver(logger, db, cfg)
		go archiver.Start(bgCtx)
	}

	limiter := handlers.NewRateLimiter(cfg)
	defer limiter.Close()

	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware(logger))
	handlers.RegisterRoutes(r, limiter,
		handlers.NewLinkHandler(logger, cfg, svc),
		handlers.NewRedirectHandler(logger, svc, recorder),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", server.Addr).Info("Starting server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server failed")
	}
}
