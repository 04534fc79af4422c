package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adsinsight/internal/delivery"
	"adsinsight/internal/domain"
	"adsinsight/internal/infrastructure"
	"adsinsight/internal/intent"
	"adsinsight/internal/pipeline"
	"adsinsight/internal/usecase"
	"adsinsight/pkg/config"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.WithFields(map[string]any{
		"port":            cfg.Server.Port,
		"cache_backend":   cfg.Cache.Backend,
		"history_backend": cfg.History.Backend,
		"sources":         len(cfg.Sheets.SourceIDs),
	}).Info("Starting server")

	if err := run(cfg, log, metrics.New()); err != nil {
		log.WithError(err).Error("Server stopped")
		os.Exit(1)
	}
}

// run owns every resource it opens and closes them before returning.
func run(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) error {
	ctx := context.Background()

	cache, closeCache, err := newRowCache(ctx, cfg.Cache, log, m)
	if err != nil {
		return fmt.Errorf("failed to set up row cache: %w", err)
	}
	defer closeCache()

	history, closeHistory, err := newHistoryRepository(ctx, cfg.History, log)
	if err != nil {
		return fmt.Errorf("failed to set up chat history: %w", err)
	}
	defer closeHistory()

	client := infrastructure.NewHTTPClient(infrastructure.HTTPClientConfig{
		SheetsURL:    cfg.Sheets.APIURL,
		AnswerURL:    cfg.Answer.URL,
		AnswerSecret: cfg.Answer.Secret,
		Timeout:      max(cfg.Sheets.Timeout, cfg.Answer.Timeout),
		RateLimit:    cfg.Sheets.RateLimit,
		Burst:        cfg.Sheets.Burst,
	}, log, m)

	var generator domain.AnswerGenerator
	if cfg.Answer.URL != "" {
		generator = client
	}

	chatService := usecase.NewChatService(
		pipeline.New(pipeline.Options{
			GranularThreshold: cfg.Pipeline.GranularThreshold,
			DefaultTopN:       cfg.Pipeline.DefaultTopN,
		}, log, m),
		intent.New(cfg.Pipeline.DefaultTopN),
		client,
		cache,
		history,
		generator,
		log,
		m,
		usecase.ChatConfig{
			SourceIDs:        cfg.Sheets.SourceIDs,
			HistoryTurns:     cfg.Pipeline.HistoryTurns,
			FetchConcurrency: cfg.Sheets.Concurrency,
		},
	)

	router := delivery.NewHTTPRouter(delivery.NewHTTPHandlers(chatService, log), log, m, delivery.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func newRowCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger, m *metrics.Metrics) (domain.RowCache, func(), error) {
	if cfg.Backend != config.CacheBackendRedis {
		return infrastructure.NewMemoryRowCache(cfg.TTL, log, m), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithField("addr", cfg.RedisAddr).Info("Using redis row cache")
	return infrastructure.NewRedisRowCache(client, cfg.RedisPrefix, cfg.TTL, log, m), func() { client.Close() }, nil
}

func newHistoryRepository(ctx context.Context, cfg config.HistoryConfig, log *logger.Logger) (domain.HistoryRepository, func(), error) {
	if cfg.Backend != config.HistoryBackendPostgres {
		return infrastructure.NewMemoryHistoryRepository(log), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := infrastructure.NewPostgresHistoryRepository(db, cfg.Table, log)
	if err := repo.EnsureSchema(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}

	log.WithField("table", cfg.Table).Info("Using postgres chat history")
	return repo, func() { db.Close() }, nil
}
