package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/civicbase/pkg/api"
	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/catalog"
	"github.com/platinummonkey/civicbase/pkg/config"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/entities"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/jobs"
	"github.com/platinummonkey/civicbase/pkg/middleware"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/platinummonkey/civicbase/pkg/profiles"
	"github.com/platinummonkey/civicbase/pkg/rbac"
	"github.com/platinummonkey/civicbase/pkg/storage/postgres"
	"github.com/platinummonkey/civicbase/pkg/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

var (
	migrateOnly = flag.Bool("migrate-only", false, "Create the schema, seed the administrator and exit")
	noJobs      = flag.Bool("no-jobs", false, "Do not run the statistics collector")
)

func main() {
	flag.Parse()

	bootstrap := logrus.New()
	bootstrap.SetFormatter(&logrus.JSONFormatter{})
	bootstrap.SetOutput(os.Stdout)

	if err := run(bootstrap); err != nil {
		bootstrap.WithError(err).Fatal("civicbase stopped with an error")
	}
}

func run(bootstrap *logrus.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	for _, name := range cfg.InsecureDefaults() {
		bootstrap.WithField("variable", name).Warn("Insecure default in use, set it before going to production")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName).
		WithField("version", cfg.Audit.AppVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	dbConfig := postgres.DefaultConnectionConfig(cfg.Database.URL)
	dbConfig.MaxConns = cfg.Database.MaxConns
	dbConfig.MinConns = cfg.Database.MinConns
	dbConfig.Timeout = cfg.Database.Timeout
	conns, err := postgres.NewConnectionManager(dbConfig)
	if err != nil {
		return err
	}
	db := conns.Primary()
	bootstrap.Info("Connected to PostgreSQL")

	var redisClient *postgres.RedisClient
	if cfg.Redis.Enabled() {
		redisClient, err = postgres.NewRedisClient(postgres.RedisConfig{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			bootstrap.WithError(err).Warn("Redis unavailable, running with in-process caches and limiters")
			redisClient = nil
		} else {
			bootstrap.Info("Connected to Redis")
		}
	}

	cat := catalog.Default()
	if err := postgres.EnsureSchema(ctx, db, cat.All()); err != nil {
		return err
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)

	// Domain services
	registry := rbac.DefaultRegistry()
	svc := entities.NewService(db, cat, crud.WithSyncObserver(metrics))

	profileStore := profiles.NewStore(db)
	permCache := rbac.NewPermissionCache(profileStore, redisClient, rbac.CacheConfig{
		Size: rbac.DefaultCacheConfig().Size,
		TTL:  cfg.Auth.PermissionCacheTTL,
	}, logger)
	if err := svc.Use(catalog.Profiles, profiles.Hooks(profileStore, registry, permCache)); err != nil {
		return err
	}
	if err := svc.Use(catalog.Users, users.Hooks(nil)); err != nil {
		return err
	}

	userStore := users.NewStore(db)
	created, err := users.SeedAdmin(ctx, userStore, svc, users.Admin{
		Email:    cfg.Admin.Email,
		UserName: cfg.Admin.UserName,
		Password: cfg.Admin.Password,
		Profile:  cfg.Auth.SuperuserProfile,
	})
	if err != nil {
		return err
	}
	if created {
		bootstrap.WithField("user", cfg.Admin.UserName).Info("Seeded administrator account")
	}
	if *migrateOnly {
		bootstrap.Info("Schema ready, exiting")
		return conns.Close()
	}

	authenticator := auth.NewAuthenticator(userStore, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		auth.WithMaxAttempts(cfg.Auth.MaxLoginAttempts),
		auth.WithResetOnLogin(cfg.Auth.ResetAttemptsOnLogin),
	)
	authorizer := rbac.NewAuthorizer(registry, permCache, cfg.Auth.SuperuserProfile)

	// Audit
	dbAudit, err := audit.NewDBLogger(svc.Repository(catalog.Logs))
	if err != nil {
		return err
	}
	auditLoggers := []audit.Logger{dbAudit}
	if cfg.Audit.File != "" {
		fileAudit, err := audit.NewFileLogger(audit.DefaultFileLoggerConfig(cfg.Audit.File))
		if err != nil {
			return err
		}
		auditLoggers = append(auditLoggers, fileAudit)
	}
	auditSink := audit.NewMultiLogger(auditLoggers...)
	auditMW := audit.NewMiddleware(auditSink, cfg.Audit.AppVersion, logger, audit.WithErrorHandler(metrics.AuditDropped))

	// Login rate limiting
	limiterConfig := middleware.LoginRateLimitConfig(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
	limiter := middleware.NewLimiter(redisClient, limiterConfig, "ratelimit:login")
	if local, ok := limiter.(*middleware.RateLimiter); ok {
		local.StartCleanup(ctx)
	}

	// Tracing
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Audit.AppVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return err
	}

	var rawRedis *redis.Client
	if redisClient != nil {
		rawRedis = redisClient.GetClient()
	}

	apiServer, err := api.NewServer(api.Config{
		Entities:     svc,
		Authn:        authenticator,
		Verifier:     authenticator,
		Authorizer:   authorizer,
		Logger:       logger,
		TokenTTL:     cfg.Auth.TokenTTL,
		AuditStore:   audit.NewStore(svc.Repository(catalog.Logs)),
		Audit:        auditMW,
		LoginLimiter: middleware.NewRateLimitMiddleware(limiter, limiterConfig, logger),
		Health:       observability.NewHealthChecker(db, rawRedis, cfg.Audit.AppVersion),
		Metrics:      metrics,
		Prometheus:   promRegistry,
		Tracing:      providers != nil,
		CORSOrigins:  httputil.ParseOrigins(cfg.Server.CORSOrigins),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return err
	}

	// Background jobs
	stats := jobs.NewStatsCollector(db, cat.All(), userStore, metrics, logger)
	if !*noJobs {
		if err := stats.Start(cfg.Jobs.StatsSchedule); err != nil {
			return err
		}
		bootstrap.WithField("schedule", cfg.Jobs.StatsSchedule).Info("Statistics collector started")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("stats collector", stats.Stop)
	shutdown.RegisterShutdownFunc("audit flush", func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			auditMW.Wait()
			close(done)
		}()
		select {
		case <-done:
			return auditSink.Close()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc("postgres", func(context.Context) error {
		return conns.Close()
	})

	serverErr := make(chan error, 1)
	go func() {
		bootstrap.WithField("addr", server.Addr).Info("Starting civicbase API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	waitCtx, stopWaiting := context.WithCancel(ctx)
	go func() {
		if err, ok := <-serverErr; ok {
			bootstrap.WithError(err).Error("HTTP server failed")
			stopWaiting()
		}
	}()

	start := time.Now()
	err = shutdown.WaitForShutdown(waitCtx)
	stopWaiting()
	bootstrap.WithField("uptime", time.Since(start).Round(time.Second).String()).Info("civicbase stopped")
	return err
}
