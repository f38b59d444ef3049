package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/db"
	hubgrpc "github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/grpc"
	internalhttp "github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/http"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/idempotency"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/jobs"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/metrics"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/ratelimit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store repository.Repository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connection failed: %v", err)
		}
		defer pool.Close()

		dbStore := db.NewStore(pool)
		if err := dbStore.Migrate(ctx); err != nil {
			log.Fatalf("db migration failed: %v", err)
		}
		store = repository.NewStore(dbStore)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = repository.NewMemoryStore()
	}

	opts := internalhttp.Options{
		Metrics: metrics.New(),
		Audit:   audit.NewSlogSink(logger),
		Logger:  logger,
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		opts.Idempotency = idempotency.NewStore(redisClient, cfg.IdempotencyTTL)
		opts.Limiter = ratelimit.New(redisClient, "device_auth", cfg.DeviceAuthRateLimit, cfg.DeviceAuthRateWindow)
	}

	server := internalhttp.NewServer(cfg, store, opts)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, err := hubgrpc.NewServer(cfg.ServiceAuthToken)
	if err != nil {
		log.Fatalf("grpc server init failed: %v", err)
	}
	go grpcServer.WatchStore(ctx, store, 15*time.Second, logger)
	jobs.StartSessionCleanupJob(ctx, cfg, store, logger)

	go func() {
		logger.Info("hub http listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen error: %v", err)
		}
		logger.Info("hub grpc listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.GRPC.Serve(listener); err != nil {
			log.Fatalf("grpc server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	grpcServer.Shutdown()
}
