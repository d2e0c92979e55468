// Package main initializes and starts the GophIntake HTTP server, setting up
// configuration, logging, storage, the replay cache, metrics, services,
// handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/config"
	"github.com/atinyakov/GophIntake/internal/db"
	"github.com/atinyakov/GophIntake/internal/idempotency"
	"github.com/atinyakov/GophIntake/internal/logger"
	"github.com/atinyakov/GophIntake/internal/metrics"
	"github.com/atinyakov/GophIntake/internal/repository"
	"github.com/atinyakov/GophIntake/internal/server/handler/http"
	"github.com/atinyakov/GophIntake/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New(logger.WithFile(options.LogFile))
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session and applicant storage.
	var repo service.Repository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer func() { _ = postgresDB.Close() }()

		db.StartAbandonedSessionCleaner(ctx, postgresDB,
			time.Duration(options.CleanupInterval),
			time.Duration(options.SessionRetention),
			zapLogger,
		)
		repo = repository.NewPostgresStore(postgresDB)
	} else {
		zapLogger.Warn("no database configured, using in-memory store")
		repo = repository.NewMemoryStore()
	}

	// Replay cache for idempotent turns.
	var replay service.ReplayCache = idempotency.NewMemoryStore(time.Duration(options.TurnTTL))
	redisClient, err := idempotency.DialRedis(ctx, options.RedisURL)
	if err != nil {
		zapLogger.Fatal("cannot connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		replay = idempotency.NewRedisStore(redisClient, time.Duration(options.TurnTTL))
	}

	onboardingService := service.NewOnboardingService(repo,
		service.WithLogger(zapLogger),
		service.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		service.WithPolicy(options.Policy()),
		service.WithReplayCache(replay),
	)

	// Create HTTP handlers for sessions and applicants.
	sessionHandler := &http.SessionHandler{Service: onboardingService}
	applicantHandler := &http.ApplicantHandler{Service: onboardingService}

	var routerOpts []http.RouterOption
	server := &nethttp.Server{
		Addr:              options.Port,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsEnabled := options.TLSCert != "" && options.TLSKey != ""
	if options.ReviewerCA != "" {
		if !tlsEnabled {
			zapLogger.Fatal("reviewer certificates need tls-cert and tls-key")
		}
		// Load and append CA certificate for reviewer cert verification.
		caCert, err := os.ReadFile(options.ReviewerCA)
		if err != nil {
			zapLogger.Fatal("failed to read reviewer CA", zap.Error(err))
		}
		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
			zapLogger.Fatal("failed to append reviewer CA to pool")
		}
		server.TLSConfig = &tls.Config{
			ClientAuth: tls.VerifyClientCertIfGiven,
			ClientCAs:  caCertPool,
			MinVersion: tls.VersionTLS12,
		}
		routerOpts = append(routerOpts, http.WithReviewerCerts())
	} else {
		zapLogger.Info("review endpoint disabled: no reviewer CA configured")
	}

	// Build the router with middleware and routes.
	server.Handler = http.NewRouter(sessionHandler, applicantHandler, zapLogger, routerOpts...)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if tlsEnabled {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}
