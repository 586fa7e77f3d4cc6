package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/dirsync/internal/api/grpc/context"
	"github.com/dtroode/dirsync/internal/api/grpc/router"
	grpcServer "github.com/dtroode/dirsync/internal/api/grpc/server"
	"github.com/dtroode/dirsync/internal/cache"
	"github.com/dtroode/dirsync/internal/config"
	"github.com/dtroode/dirsync/internal/events"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
	"github.com/dtroode/dirsync/internal/processor"
	"github.com/dtroode/dirsync/internal/repository/postgres"
	"github.com/dtroode/dirsync/internal/scheduler"
	"github.com/dtroode/dirsync/internal/server"
	"github.com/dtroode/dirsync/internal/service"
	"github.com/dtroode/dirsync/internal/source/directory"
	"github.com/dtroode/dirsync/internal/staleness"
	storage "github.com/dtroode/dirsync/internal/storage/minio"
	redisstore "github.com/dtroode/dirsync/internal/storage/redis"
	"github.com/dtroode/dirsync/internal/token"
)

const (
	shutdownTimeout    = 10 * time.Second
	departmentCacheLen = 1024
	departmentCacheTTL = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync service",
		RunE:  runServe,
	}
}

// backend is the persistent cache tier picked from config.
type backend struct {
	store  model.KVStore
	purger scheduler.Purger
	redis  *goredis.Client
	close  func()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	logger := logger.New(cfg.LogLevel)
	logAppVersion(cmd)

	be := openBackend(ctx, cfg, logger)
	defer be.close()

	source, err := directory.NewClient(directory.Config{
		BaseURL:    cfg.Directory.BaseURL,
		Token:      cfg.Directory.Token,
		Timeout:    cfg.Directory.Timeout,
		RateLimit:  cfg.Directory.RateLimit,
		MaxRetries: cfg.Directory.MaxRetries,
		PageSize:   cfg.Directory.PageSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create directory client: %w", err)
	}

	userCache := cache.New(be.store, logger,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
	)
	strategy := staleness.New(cfg.Sync.Interval)
	proc := processor.New(logger, processor.WithEnrichers(
		processor.NewDepartments(source, departmentCacheLen, departmentCacheTTL, logger),
	))
	dispatcher := events.NewDispatcher(logger, eventSinks(ctx, cfg, be, logger)...)

	syncService := service.NewSync(source, userCache, strategy, proc, dispatcher, service.SyncConfig{
		ChunkSize: cfg.Sync.ChunkSize,
		Workers:   cfg.Sync.Workers,
	}, logger)

	maintenance := scheduler.New(syncService, scheduler.Config{
		FlushInterval: cfg.Cache.FlushInterval,
		CleanInterval: cfg.Cache.CleanInterval,
		MaxAge:        cfg.Cache.MaxAge,
		Purger:        be.purger,
	}, logger)

	r := router.New(syncService, token.NewJWT(cfg.JWT.Secret), grpcctx.NewManager(), logger)
	gs := r.Register()
	reflection.Register(gs)

	servers := []model.Server{
		grpcServer.NewGRPCServer(gs, fmt.Sprintf(":%s", cfg.GRPC.Port)),
	}
	if cfg.Metrics.Addr != "" {
		servers = append(servers, server.NewMetricsServer(cfg.Metrics.Addr))
	}
	grpcLayer := server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := maintenance.Start(ctx); err != nil {
			logger.Error("scheduler stopped with error", "error", err)
		}
	}()

	for i, s := range servers {
		sl := grpcLayer
		if i > 0 {
			sl = server.NewPlainListener()
		}
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s, sl)
	}

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")
	r.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}
	maintenance.Stop()

	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}

// openBackend connects the configured persistent tier. Any failure leaves the
// cache memory-only so the service keeps syncing.
func openBackend(ctx context.Context, cfg *config.Config, logger *logger.Logger) backend {
	memoryOnly := backend{close: func() {}}

	switch cfg.Cache.Backend {
	case config.BackendNone:
		logger.Info("cache backend disabled, running memory-only")
		return memoryOnly

	case config.BackendPostgres:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			logger.Warn("postgres backend unavailable, running memory-only", "error", err)
			return memoryOnly
		}
		repo := postgres.NewCacheRepository(db, cfg.Cache.KeyPrefix)
		return backend{store: repo, purger: repo, close: func() { _ = db.Close() }}

	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis backend unavailable, running memory-only", "error", err)
			return memoryOnly
		}
		return backend{
			store: redisstore.NewStore(client, cfg.Cache.KeyPrefix),
			redis: client,
			close: func() { _ = client.Close() },
		}

	case config.BackendMinio:
		client, err := storage.NewClient(ctx, storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Prefix:    cfg.Cache.KeyPrefix,
		})
		if err != nil {
			logger.Warn("minio backend unavailable, running memory-only", "error", err)
			return memoryOnly
		}
		return backend{store: client, close: func() {}}
	}

	logger.Warn("unknown cache backend, running memory-only", "backend", cfg.Cache.Backend)
	return memoryOnly
}

// eventSinks always logs events and also appends them to a Redis stream when enabled.
func eventSinks(ctx context.Context, cfg *config.Config, be backend, logger *logger.Logger) []model.EventSink {
	sinks := []model.EventSink{events.NewLogSink(logger)}
	if !cfg.Events.RedisEnabled {
		return sinks
	}

	client := be.redis
	if client == nil {
		var err error
		client, err = redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis event stream unavailable, events are only logged", "error", err)
			return sinks
		}
		go func() {
			<-ctx.Done()
			_ = client.Close()
		}()
	}

	return append(sinks, events.NewRedisStreamSink(client, cfg.Events.RedisStream, cfg.Events.StreamMaxLen))
}
