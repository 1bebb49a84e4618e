// Package observability provides structured logging, Prometheus metrics,
// health checks, OpenTelemetry tracing and graceful shutdown.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("collection", "regions").WithError(err).Error("sync aborted")
//
// LoggerMiddleware stores the logger in the request context. FromContext
// returns it annotated with the request id, the caller id and the trace.
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// Metrics implements crud.SyncObserver, counting the terminal state of every
// denormalization sync, and counts dropped audit records. The statistics job
// refreshes the record and user gauges.
//
// # Health
//
//	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(db, rdb, version))
//
// /health/live always answers 200. /health and /health/ready answer 503 when
// the database is down; a Redis outage only reports "degraded".
//
// # Tracing
//
// InitOTel installs OTLP gRPC trace and metric exporters when enabled.
// TraceHandler opens one server span per request, named after the route.
package observability
