// Package main serves the onboarding tools to a language model over MCP
// stdio. Logs go to a file only, since stdout carries the protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/config"
	"github.com/atinyakov/GophIntake/internal/db"
	"github.com/atinyakov/GophIntake/internal/dispatcher"
	"github.com/atinyakov/GophIntake/internal/idempotency"
	"github.com/atinyakov/GophIntake/internal/logger"
	"github.com/atinyakov/GophIntake/internal/metrics"
	"github.com/atinyakov/GophIntake/internal/repository"
	"github.com/atinyakov/GophIntake/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	options := config.Parse()

	log := logger.New(logger.WithFile(options.LogFile), logger.WithoutStdout())
	if err := log.Init(options.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Log.Sync() }()

	ctx := context.Background()

	var repo service.Repository = repository.NewMemoryStore()
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer func() { _ = postgresDB.Close() }()
		repo = repository.NewPostgresStore(postgresDB)
	}

	var replay service.ReplayCache = idempotency.NewMemoryStore(time.Duration(options.TurnTTL))
	redisClient, err := idempotency.DialRedis(ctx, options.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		replay = idempotency.NewRedisStore(redisClient, time.Duration(options.TurnTTL))
	}

	svcOpts := []service.Option{
		service.WithLogger(log.Log),
		service.WithPolicy(options.Policy()),
		service.WithReplayCache(replay),
	}
	if options.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		svcOpts = append(svcOpts, service.WithMetrics(metrics.New(reg)))

		r := chi.NewRouter()
		r.Handle("/metrics", metrics.Handler(reg))
		metricsServer := &http.Server{Addr: options.MetricsAddress, Handler: r, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	svc := service.NewOnboardingService(repo, svcOpts...)

	s := dispatcher.NewServer(svc, log.Log)
	log.Log.Info("serving mcp over stdio", zap.String("version", dispatcher.Version))
	return server.ServeStdio(s)
}
